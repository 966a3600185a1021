// Copyright 2026 Ewout Prangsma
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

package model

import (
	"github.com/pkg/errors"
)

var (
	// InvalidArgumentError is the cause of all errors caused by a missing
	// or malformed argument (typically a pin configuration).
	InvalidArgumentError = errors.New("invalid argument")
	IsInvalidArgument    = isErrorFunc(InvalidArgumentError)
	// UnsupportedError is the cause of errors returned when a backend
	// cannot provide a requested feature.
	UnsupportedError = errors.New("unsupported")
	IsUnsupported    = isErrorFunc(UnsupportedError)

	maskAny = errors.WithStack
)

// InvalidArgument creates an error with InvalidArgumentError as cause.
func InvalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(InvalidArgumentError, format, args...)
}

// Unsupported creates an error with UnsupportedError as cause.
func Unsupported(format string, args ...interface{}) error {
	return errors.Wrapf(UnsupportedError, format, args...)
}

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
