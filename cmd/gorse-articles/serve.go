// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorse-io/articles/base/log"
	"github.com/gorse-io/articles/server"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, source, err := setup(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		defer source.Close()
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		s := server.NewRestServer(cfg, source)
		done := make(chan error, 1)
		go func() {
			done <- s.StartHttpServer()
		}()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		select {
		case err = <-done:
			return errors.Trace(err)
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = s.Shutdown(shutdownCtx); err != nil {
			return errors.Trace(err)
		}
		shutdownTracing()
		log.Logger().Info("stop gorse-articles server successfully")
		return errors.Trace(<-done)
	},
}

func init() {
	serveCommand.Flags().String("host", "", "host of the REST API server")
	serveCommand.Flags().Int("port", 0, "port of the REST API server")
}
