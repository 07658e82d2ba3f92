/*
Copyright © 2025 Alexey Zapparov <alexey@zapparov.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/ixti/check-cm-service/internal/check"
	"github.com/ixti/check-cm-service/internal/cm"
	"github.com/ixti/check-cm-service/internal/nagios"
)

type options struct {
	Hostname   string
	Port       int
	Username   string
	Password   string
	APIVersion int
	UseTLS     bool
	Insecure   bool
	Cluster    string
	Service    string
	Timeout    time.Duration
	Debug      bool
}

// envCredentials are picked up when -u/--password are absent, so the
// scheduler's command definition does not have to carry secrets.
type envCredentials struct {
	Username string `envconfig:"CM_USERNAME"`
	Password string `envconfig:"CM_PASSWORD"`
}

var opts options

// rootCmd represents the check itself; there are no subcommands.
var rootCmd = &cobra.Command{
	Use:     "check-cm-service",
	Short:   "A nagios plugin to monitor Cloudera Manager services",
	Long:    "Queries the Cloudera Manager API for the health of one service in one cluster,\nprints a single status line and exits with the matching nagios code.",
	Version: "1.0",
	Args:    cobra.NoArgs,

	// Nagios parses stdout; anything beyond the status line confuses it.
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: rootCmdRunE,
}

// exitCode holds the nagios code of the completed check.
var exitCode = nagios.StatusOK

// Execute runs the check and returns the process exit code. Every failure
// path (usage error, transport, credentials, unknown cluster or service) is
// rendered as an UNKNOWN status line so the scheduler always gets something
// parseable.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%s: %s\n", nagios.Label(nagios.StatusUnknown), err)
		return nagios.StatusUnknown
	}

	return exitCode
}

// resolve fills in everything the flags left unset: the port is derived from
// the TLS flag, credentials fall back to the environment and finally to
// interactive prompts.
func (o *options) resolve(prompt *prompter) error {
	if o.Port == 0 {
		if o.UseTLS {
			o.Port = cm.DefaultHTTPSPort
		} else {
			o.Port = cm.DefaultHTTPPort
		}
	}

	// Advisory only, matching the established behavior of the check.
	if o.APIVersion < cm.MinimumSupportedAPIVersion {
		slog.Warn("given API version is below the minimum supported version",
			"given", o.APIVersion, "minimum", cm.MinimumSupportedAPIVersion)
	}

	var creds envCredentials

	if err := envconfig.Process("", &creds); err != nil {
		return err
	}

	if o.Username == "" {
		o.Username = creds.Username
	}

	if o.Password == "" {
		o.Password = creds.Password
	}

	if o.Username == "" {
		username, err := prompt.readUsername()

		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}

		o.Username = username
	}

	if o.Password == "" {
		password, err := prompt.readPassword()

		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		o.Password = password
	}

	return nil
}

func setupLogging(debug bool) {
	level := slog.LevelInfo

	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func rootCmdRunE(cmd *cobra.Command, args []string) error {
	setupLogging(opts.Debug)

	if err := opts.resolve(newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())); err != nil {
		return err
	}

	client := cm.NewClient(cm.Config{
		Hostname:   opts.Hostname,
		Port:       opts.Port,
		Username:   opts.Username,
		Password:   opts.Password,
		APIVersion: opts.APIVersion,
		UseTLS:     opts.UseTLS,
		Insecure:   opts.Insecure,
		Timeout:    opts.Timeout,
	})

	ctx := cmd.Context()

	cluster, err := client.Cluster(ctx, opts.Cluster)

	if err != nil {
		return err
	}

	service, err := cluster.Service(ctx, opts.Service)

	if err != nil {
		return err
	}

	result := check.Evaluate(service)

	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	exitCode = result.Code

	return nil
}

func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&opts.Hostname, "hostname", "H", "",
		"The hostname of the Cloudera Manager server.")
	flags.IntVarP(&opts.Port, "port", "p", 0,
		"The port of the Cloudera Manager server. Defaults to 7180 (http) or 7183 (https).")
	flags.StringVarP(&opts.Username, "username", "u", "",
		"Login name.")
	flags.StringVar(&opts.Password, "password", "",
		"Login password.")
	flags.IntVar(&opts.APIVersion, "api-version", cm.MinimumSupportedAPIVersion,
		fmt.Sprintf("API version to be used. Defaults to %d.", cm.MinimumSupportedAPIVersion))
	flags.BoolVar(&opts.UseTLS, "tls", false,
		"Whether to use tls (https).")
	flags.BoolVar(&opts.Insecure, "insecure", false,
		"Skip TLS certificate verification.")
	flags.StringVarP(&opts.Cluster, "cluster", "c", "",
		"The cluster to monitor.")
	flags.StringVarP(&opts.Service, "service", "s", "",
		"The service to monitor.")
	flags.DurationVar(&opts.Timeout, "timeout", 30*time.Second,
		"Bound on each request to the Cloudera Manager API.")
	flags.BoolVar(&opts.Debug, "debug", false,
		"Enable debug logging on stderr.")

	cobra.CheckErr(rootCmd.MarkFlagRequired("hostname"))
	cobra.CheckErr(rootCmd.MarkFlagRequired("cluster"))
	cobra.CheckErr(rootCmd.MarkFlagRequired("service"))
}
