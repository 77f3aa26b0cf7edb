// Copyright (C) 2025 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
package configfx

import (
	"fmt"
	"os"

	"github.com/croessner/portier/server/config"
	"go.uber.org/fx"
)

// Params carries the command line options that locate the configuration file.
type Params struct {
	Path   string
	Format string
}

// Module provides the decoded *config.File.
var Module = fx.Module("configfx",
	fx.Provide(NewFile),
)

// NewFile loads, decodes and validates the configuration.
func NewFile(params Params) (*config.File, error) {
	if params.Path != "" {
		if _, err := os.Stat(params.Path); os.IsNotExist(err) {
			return nil, fmt.Errorf("specified configuration file does not exist: %s", params.Path)
		}
	}

	file, err := config.Load(config.NewViper(), params.Path, params.Format)
	if err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return file, nil
}
