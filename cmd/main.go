/*
Copyright 2024 TGFC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tgfc/fanops"
	"github.com/tgfc/fanops/config"
	"github.com/tgfc/fanops/database"
	"github.com/tgfc/fanops/internal/notification"
)

// Fanops represents the CLI application, encapsulating the root Cobra command.
type Fanops struct {
	cmd *cobra.Command
}

// fanopsInstance holds the runtime instance and configuration shared by the
// subcommands.
type fanopsInstance struct {
	fanops *fanops.Fanops
	cnf    *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the Fanops instance before
// running any command.
func preRun(app *fanopsInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("fanops.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newFanops, err := setupFanops(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.fanops = newFanops
		app.cnf = cnf

		return nil
	}
}

// setupFanops creates a new Fanops instance connected to the data source
// specified by the configuration.
func setupFanops(cfg *config.Configuration) (*fanops.Fanops, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newFanops, err := fanops.NewFanops(db)
	if err != nil {
		return nil, fmt.Errorf("error creating fanops: %v", err)
	}
	return newFanops, nil
}

// NewCLI creates the command-line interface for the fanops application.
// It sets up the root command and the server, worker and migration
// subcommands.
func NewCLI() *Fanops {
	var configFile string
	b := &fanopsInstance{}

	var rootCmd = &cobra.Command{
		Use:   "fanops",
		Short: "Operations dashboard for custom hand fan orders",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./fanops.json", "Configuration file for fanops")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Fanops{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during
// execution.
func (w Fanops) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
