//    Copyright 2018 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package environment

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	gpioChipPath   = "/dev/gpiochip0"
	gpioSysfsPath  = "/sys/class/gpio"
	bcmReleaseHint = "rpi"
)

// AutoDetectBridgeType detects the default bridge type based on the environment.
func AutoDetectBridgeType(log zerolog.Logger) string {
	if _, err := os.Stat(gpioChipPath); err == nil {
		return "cdev"
	}
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		log.Debug().Err(err).Msg("Uname failed, using simulated GPIO")
		return "sim"
	}
	release := strings.TrimSpace(unix.ByteSliceToString(name.Release[:]))
	if strings.Contains(release, bcmReleaseHint) {
		// Raspberry Pi kernels are served best by the periph.io host drivers
		return "periph"
	}
	if _, err := os.Stat(gpioSysfsPath); err == nil {
		return "sysfs"
	}
	log.Debug().Str("release", release).Msg("No GPIO controller found, using simulated GPIO")
	return "sim"
}

// FreeMemory returns the amount of free system memory in bytes.
func FreeMemory() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return uint64(info.Freeram) * uint64(info.Unit), nil
}
