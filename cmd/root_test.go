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
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ixti/check-cm-service/internal/cm"
	"github.com/ixti/check-cm-service/internal/nagios"
)

func silentPrompter(t *testing.T, input string) *prompter {
	t.Helper()

	return newPrompter(strings.NewReader(input), io.Discard)
}

func resetCredentialEnviron(t *testing.T) {
	t.Helper()

	os.Unsetenv("CM_USERNAME")
	os.Unsetenv("CM_PASSWORD")
}

func TestOptions_Resolve(t *testing.T) {
	t.Run("port defaulting", func(t *testing.T) {
		resetCredentialEnviron(t)

		t.Run("defaults to 7180 without TLS", func(t *testing.T) {
			o := options{Username: "admin", Password: "secret", APIVersion: 12}

			assert.Nil(t, o.resolve(silentPrompter(t, "")), "expected no error")
			assert.Equal(t, cm.DefaultHTTPPort, o.Port)
		})

		t.Run("defaults to 7183 with TLS", func(t *testing.T) {
			o := options{Username: "admin", Password: "secret", APIVersion: 12, UseTLS: true}

			assert.Nil(t, o.resolve(silentPrompter(t, "")), "expected no error")
			assert.Equal(t, cm.DefaultHTTPSPort, o.Port)
		})

		t.Run("an explicit port always wins", func(t *testing.T) {
			o := options{Username: "admin", Password: "secret", APIVersion: 12, UseTLS: true, Port: 8443}

			assert.Nil(t, o.resolve(silentPrompter(t, "")), "expected no error")
			assert.Equal(t, 8443, o.Port)
		})
	})

	t.Run("credentials", func(t *testing.T) {
		t.Run("falls back to CM_USERNAME and CM_PASSWORD", func(t *testing.T) {
			resetCredentialEnviron(t)
			t.Setenv("CM_USERNAME", "env-admin")
			t.Setenv("CM_PASSWORD", "env-secret")

			o := options{APIVersion: 12}

			assert.Nil(t, o.resolve(silentPrompter(t, "")), "expected no error")
			assert.Equal(t, "env-admin", o.Username)
			assert.Equal(t, "env-secret", o.Password)
		})

		t.Run("flags win over the environment", func(t *testing.T) {
			resetCredentialEnviron(t)
			t.Setenv("CM_USERNAME", "env-admin")
			t.Setenv("CM_PASSWORD", "env-secret")

			o := options{Username: "admin", Password: "secret", APIVersion: 12}

			assert.Nil(t, o.resolve(silentPrompter(t, "")), "expected no error")
			assert.Equal(t, "admin", o.Username)
			assert.Equal(t, "secret", o.Password)
		})

		t.Run("prompts for whatever is still missing", func(t *testing.T) {
			resetCredentialEnviron(t)

			o := options{APIVersion: 12}

			assert.Nil(t, o.resolve(silentPrompter(t, "admin\nsecret\n")), "expected no error")
			assert.Equal(t, "admin", o.Username)
			assert.Equal(t, "secret", o.Password)
		})

		t.Run("fails when the prompt input is exhausted", func(t *testing.T) {
			resetCredentialEnviron(t)

			o := options{APIVersion: 12}

			assert.NotNil(t, o.resolve(silentPrompter(t, "")), "expected an error")
		})
	})

	t.Run("API version advisory", func(t *testing.T) {
		captureLog := func(t *testing.T) *bytes.Buffer {
			t.Helper()

			buf := &bytes.Buffer{}
			previous := slog.Default()

			slog.SetDefault(slog.New(slog.NewTextHandler(buf, nil)))
			t.Cleanup(func() { slog.SetDefault(previous) })

			return buf
		}

		t.Run("warns below the minimum supported version without aborting", func(t *testing.T) {
			resetCredentialEnviron(t)
			log := captureLog(t)

			o := options{Username: "admin", Password: "secret", APIVersion: 5}

			assert.Nil(t, o.resolve(silentPrompter(t, "")), "expected no error")
			assert.Contains(t, log.String(), "below the minimum supported version")
		})

		t.Run("stays quiet at the minimum supported version", func(t *testing.T) {
			resetCredentialEnviron(t)
			log := captureLog(t)

			o := options{Username: "admin", Password: "secret", APIVersion: cm.MinimumSupportedAPIVersion}

			assert.Nil(t, o.resolve(silentPrompter(t, "")), "expected no error")
			assert.Empty(t, log.String())
		})
	})
}

func TestRootCmd(t *testing.T) {
	fakeManagerServer := func(t *testing.T) *httptest.Server {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			assert.True(t, ok, "request should carry basic auth")
			assert.Equal(t, "admin", username)
			assert.Equal(t, "secret", password)

			switch path := r.URL.Path; path {
			case "/api/v12/clusters/prod":
				w.Write([]byte(`{"name": "prod"}`))

			case "/api/v12/clusters/prod/services/hdfs":
				w.Write([]byte(`
					{
						"name":          "hdfs",
						"healthSummary": "BAD",
						"healthChecks": [
							{"name": "DATANODES_HEALTHY", "summary": "BAD"},
							{"name": "NAMENODE_UPTIME",   "summary": "GOOD"}
						]
					}
				`))

			default:
				t.Errorf("unexpected URL: %s", path)
			}
		}))

		t.Cleanup(server.Close)

		return server
	}

	t.Run("prints one status line and records the exit code", func(t *testing.T) {
		resetCredentialEnviron(t)

		server := fakeManagerServer(t)
		serverURL, err := url.Parse(server.URL)
		assert.Nil(t, err, "expected no error")

		out := &bytes.Buffer{}
		rootCmd.SetOut(out)
		rootCmd.SetErr(io.Discard)
		rootCmd.SetArgs([]string{
			"-H", serverURL.Hostname(),
			"-p", serverURL.Port(),
			"-u", "admin",
			"--password", "secret",
			"-c", "prod",
			"-s", "hdfs",
		})

		assert.Nil(t, rootCmd.Execute(), "expected no error")
		assert.Equal(t, "CRITICAL: hdfs is BAD - DATANODES_HEALTHY (BAD) \n", out.String())
		assert.Equal(t, nagios.StatusCritical, exitCode)
	})
}
