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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/binkynet/GpioWorker/pkg/service/worker"
)

const (
	refreshInterval = time.Second
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Faint(true)
)

// StatusProvider gives access to the worker state.
type StatusProvider interface {
	Status() worker.Status
}

type Root struct {
	provider StatusProvider
	term     string
	width    int
	height   int
	loadAvg  string
	status   worker.Status
	pins     table.Model

	showFile struct {
		active   bool
		viewPort viewport.Model
	}
}

var _ tea.Model = Root{}

// NewRoot creates the root model of the status console.
func NewRoot(provider StatusProvider, term string, width, height int) Root {
	pins := table.New(
		table.WithColumns([]table.Column{
			{Title: "Pin", Width: 8},
			{Title: "Handler", Width: 8},
			{Title: "Level", Width: 6},
			{Title: "Last event", Width: 12},
		}),
		table.WithHeight(8),
	)
	return Root{
		provider: provider,
		term:     term,
		width:    width,
		height:   height,
		pins:     pins,
	}
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return tea.Batch(doReloadCPULoadAvg(), r.doReloadStatus(0))
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loadAvgMsg:
		r.loadAvg = string(msg)
		return r, doReloadCPULoadAvg()
	case statusMsg:
		r = r.setStatus(worker.Status(msg))
		return r, r.doReloadStatus(refreshInterval)
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case "m":
			r = r.openFile("/proc/meminfo")
		case "esc":
			r.showFile.active = false
		}
	}

	// Handle keyboard and mouse events in the viewport
	if r.showFile.active {
		var cmd tea.Cmd
		r.showFile.viewPort, cmd = r.showFile.viewPort.Update(msg)
		cmds = append(cmds, cmd)
	}

	return r, tea.Batch(cmds...)
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (r Root) View() string {
	s := r.headerView()
	if r.showFile.active {
		return s + r.showFile.viewPort.View()
	}
	q := r.status.Queue
	s += lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render("backend   ")+fmt.Sprintf("%s (%d pins), running=%v", r.status.Backend, r.status.PinCount, r.status.Running),
		labelStyle.Render("queue     ")+fmt.Sprintf("%d/%d, enqueued %s, dropped %s", q.Length, q.Capacity, humanize.Comma(int64(q.Enqueued)), humanize.Comma(int64(q.Dropped))),
		labelStyle.Render("processed ")+humanize.Comma(int64(r.status.Processed)),
		labelStyle.Render("toggles   ")+humanize.Comma(int64(r.status.ToggleCount)),
	) + "\n\n"
	s += r.pins.View() + "\n\n"
	s += `m - View /proc/meminfo
esc - Back
q - Disconnect
`
	return s
}

func (r Root) headerView() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("GPIO worker "+r.status.ProgramVersion+" "),
		r.loadAvg,
	) + "\n"
}

// setStatus stores the given status and rebuilds the pin table.
func (r Root) setStatus(status worker.Status) Root {
	r.status = status
	bound := make(map[int]bool)
	for _, pin := range status.BoundPins {
		bound[int(pin)] = true
	}
	rows := make([]table.Row, 0, len(status.LastEvents)+len(status.BoundPins))
	seen := make(map[int]bool)
	for _, evt := range status.LastEvents {
		seen[int(evt.Pin)] = true
		rows = append(rows, table.Row{
			evt.Pin.String(),
			strconv.FormatBool(bound[int(evt.Pin)]),
			strconv.Itoa(evt.LevelValue()),
			humanize.Time(evt.Time),
		})
	}
	for _, pin := range status.BoundPins {
		if !seen[int(pin)] {
			rows = append(rows, table.Row{pin.String(), "true", "-", "never"})
		}
	}
	r.pins.SetRows(rows)
	return r
}

func (r Root) openFile(path string) Root {
	headerHeight := lipgloss.Height(r.headerView())

	content, _ := os.ReadFile(path)
	r.showFile.viewPort = viewport.New(r.width, r.height-headerHeight)
	r.showFile.viewPort.YPosition = headerHeight
	r.showFile.viewPort.SetContent(string(content))
	r.showFile.active = true

	return r
}

type loadAvgMsg string

func doReloadCPULoadAvg() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		if content, err := os.ReadFile("/proc/loadavg"); err != nil {
			return loadAvgMsg(err.Error())
		} else {
			return loadAvgMsg(string(content))
		}
	})
}

type statusMsg worker.Status

func (r Root) doReloadStatus(delay time.Duration) tea.Cmd {
	provider := r.provider
	if delay <= 0 {
		return func() tea.Msg {
			return statusMsg(provider.Status())
		}
	}
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return statusMsg(provider.Status())
	})
}
