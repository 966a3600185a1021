// Copyright 2023 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
)

// UI serves the status console over SSH.
type UI struct {
	provider StatusProvider
}

// New creates a new UI for the given worker.
func New(provider StatusProvider) *UI {
	return &UI{provider: provider}
}

// Handler creates a root model for the incoming session.
func (u *UI) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()
	return NewRoot(u.provider, pty.Term, pty.Window.Width, pty.Window.Height), []tea.ProgramOption{tea.WithAltScreen()}
}
