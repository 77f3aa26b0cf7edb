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
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"time"

	"github.com/croessner/portier/server/app/configfx"
	"github.com/croessner/portier/server/app/corefx"
	"github.com/croessner/portier/server/app/httpfx"
	"github.com/croessner/portier/server/app/logfx"
	"github.com/croessner/portier/server/app/monitoringfx"
	"github.com/croessner/portier/server/app/storefx"
	"github.com/croessner/portier/server/definitions"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

var (
	version   = definitions.Version
	buildTime = ""
)

// parseFlags returns the configuration location given on the command line and exits if only
// the version was requested.
func parseFlags() configfx.Params {
	versionFlag := pflag.BoolP("version", "V", false, "print version and exit")
	configFlag := pflag.StringP("config", "c", "", "path to configuration file")
	configFormatFlag := pflag.String("config-format", "yaml", "configuration file format (yaml, json, toml)")

	pflag.Parse()

	if *versionFlag {
		fmt.Println("Version:", version, buildTime)
		os.Exit(0)
	}

	return configfx.Params{Path: *configFlag, Format: *configFormatFlag}
}

func appOptions(params configfx.Params) fx.Option {
	return fx.Options(
		fx.Supply(params),
		configfx.Module,
		logfx.Module,
		monitoringfx.Module,
		storefx.Module,
		corefx.Module,
		httpfx.Module,
	)
}

func main() {
	startTimeout := 30 * time.Second
	stopTimeout := 30 * time.Second

	app := fx.New(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return logfx.NewFxEventLogger(logger)
		}),
		appOptions(parseFlags()),
	)
	if err := app.Err(); err != nil {
		stdlog.Fatalln("Unable to setup the environment. Error:", err)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), startTimeout)
	err := app.Start(startCtx)

	startCancel()

	if err != nil {
		stdlog.Fatalln("Unable to start fx app. Error:", err)
	}

	signal := <-app.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)

	if err := app.Stop(stopCtx); err != nil {
		stdlog.Printf("Unable to stop fx app. Error: %v", err)
	}

	stopCancel()

	os.Exit(signal.ExitCode)
}
