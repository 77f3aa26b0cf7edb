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
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const portierURL = "http://127.0.0.1:8080/ping"

// check reports whether url answers with status 200 and the body "pong".
func check(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if strings.ToLower(strings.TrimSpace(string(content))) != "pong" {
		return fmt.Errorf("unexpected body %q", content)
	}

	return nil
}

func main() {
	pflag.StringP("url", "u", portierURL, "portier url to test")
	pflag.BoolP("verbose", "v", false, "Be verbose")
	pflag.BoolP("tls-skip-verify", "t", false, "Skip TLS server certificate verification")
	pflag.Parse()
	_ = viper.BindPFlags(pflag.CommandLine)

	verbose := viper.GetBool("verbose")

	if verbose {
		fmt.Println("Checking", viper.GetString("url"))
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: viper.GetBool("tls-skip-verify")},
	}
	httpClient := &http.Client{Timeout: time.Second * 10, Transport: transport}

	if err := check(httpClient, viper.GetString("url")); err != nil {
		if verbose {
			fmt.Println("Test FAILED:", err)
		}

		os.Exit(1)
	}

	if verbose {
		fmt.Println("Test OK")
	}
}
