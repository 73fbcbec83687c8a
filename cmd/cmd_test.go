package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/shopctl/internal/config"
)

// Test command initialization and registration
func TestCommandsRegistered(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}

	commands := rootCmd.Commands()
	expectedCommands := map[string]bool{
		"auth":     false,
		"products": false,
		"images":   false,
		"profile":  false,
		"config":   false,
		"seeder":   false,
	}

	for _, cmd := range commands {
		if _, ok := expectedCommands[cmd.Name()]; ok {
			expectedCommands[cmd.Name()] = true
		}
	}

	for cmdName, found := range expectedCommands {
		if !found {
			t.Errorf("expected command '%s' to be registered with root command", cmdName)
		}
	}
}

func TestSubcommands(t *testing.T) {
	tests := []struct {
		parent   *cobra.Command
		expected []string
	}{
		{authCmd, []string{"login", "register", "logout", "whoami", "refresh"}},
		{productsCmd, []string{"list", "get", "search", "create", "update", "delete"}},
		{imagesCmd, []string{"upload", "download", "url"}},
		{profileCmd, []string{"show", "update"}},
		{configCmd, []string{"profiles", "use", "set-server", "remove"}},
		{seederCmd, []string{"run", "validate"}},
	}

	for _, tt := range tests {
		t.Run(tt.parent.Name(), func(t *testing.T) {
			names := map[string]bool{}
			for _, sub := range tt.parent.Commands() {
				names[sub.Name()] = true
			}
			for _, want := range tt.expected {
				if !names[want] {
					t.Errorf("%s command should have '%s' subcommand", tt.parent.Name(), want)
				}
			}
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	flags := []string{"config", "profile", "output", "server", "log-level"}
	for _, flagName := range flags {
		if rootCmd.PersistentFlags().Lookup(flagName) == nil {
			t.Errorf("expected global flag '%s' to be defined", flagName)
		}
	}
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI with args against an isolated home directory and
// returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	prevNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prevNoColor })

	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`current_profile: default
profiles:
  default:
    server_url: `+serverURL+`
    access_token: A1
    refresh_token: R1
    username: alice
    role: ADMIN
`), 0600))
	return path
}

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestLoginWhoamiLogout(t *testing.T) {
	access := signedToken(t, "alice", time.Now().Add(time.Hour))
	var logouts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/login":
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "alice@example.com", creds["email"])
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token":        access,
				"refreshToken": "R1",
				"username":     "alice",
				"roles":        []map[string]string{{"name": "ADMIN"}},
			})
		case "/auth/api/Logout":
			atomic.AddInt32(&logouts, 1)
			assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "config.yaml")

	out, _, err := execute(t, "auth", "login", "--config", path, "--server", server.URL,
		"--email", "alice@example.com", "--password", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully logged in as alice")

	saved, err := config.Load(path)
	require.NoError(t, err)
	require.Contains(t, saved.Profiles, "default")
	assert.Equal(t, access, saved.Profiles["default"].AccessToken)
	assert.Equal(t, server.URL, saved.Profiles["default"].ServerURL)
	assert.Equal(t, "ADMIN", saved.Profiles["default"].Role)

	out, _, err = execute(t, "auth", "whoami", "--config", path, "--output", "json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "alice", info["username"])
	assert.Equal(t, "ADMIN", info["role"])
	assert.Equal(t, "default", info["profile"])
	assert.Equal(t, server.URL, info["server"])
	assert.Equal(t, false, info["expired"])
	assert.NotEmpty(t, info["expires_at"])

	out, _, err = execute(t, "auth", "logout", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully logged out")
	assert.Equal(t, int32(1), atomic.LoadInt32(&logouts))

	saved, err = config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, saved.Profiles["default"].AccessToken)
	assert.Empty(t, saved.Profiles["default"].RefreshToken)
	assert.Equal(t, server.URL, saved.Profiles["default"].ServerURL, "logout keeps the server URL")

	_, _, err = execute(t, "auth", "whoami", "--config", path)
	assert.ErrorContains(t, err, "not logged in")
}

func TestWhoami_OpaqueToken(t *testing.T) {
	path := writeConfig(t, "http://shop.test")

	out, _, err := execute(t, "auth", "whoami", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "http://shop.test")
	assert.Contains(t, out, "unknown")
}

func TestProductsList_RefreshesAndPersists(t *testing.T) {
	var refreshes int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/Refresh":
			atomic.AddInt32(&refreshes, 1)
			json.NewEncoder(w).Encode(map[string]string{"access_token": "A2", "refresh_token": "R2"})
		case "/product/v1/All":
			if r.Header.Get("Authorization") != "Bearer A2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			w.Write([]byte(`[{"id":1,"name":"Widget","description":"A small widget","price":9.5,"quantity":2,"category":"Tools"}]`))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer server.Close()

	path := writeConfig(t, server.URL)

	out, _, err := execute(t, "products", "list", "--config", path, "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Widget")
	assert.Contains(t, out, "9.50")
	assert.Contains(t, out, "Tools")
	assert.Contains(t, out, "in stock")
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "A2", saved.Profiles["default"].AccessToken)
	assert.Equal(t, "R2", saved.Profiles["default"].RefreshToken)
	assert.Equal(t, "alice", saved.Profiles["default"].Username)
}

func TestProductsList_RefreshOnOtherProfileKeepsCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/Refresh":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "S2", "refresh_token": "T2"})
		case "/product/v1/All":
			if r.Header.Get("Authorization") != "Bearer S2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`current_profile: default
profiles:
  default:
    server_url: http://prod.test
    access_token: A1
    refresh_token: R1
  staging:
    server_url: `+server.URL+`
    access_token: S1
    refresh_token: T1
`), 0600))

	_, _, err := execute(t, "products", "list", "--config", path, "--profile", "staging")
	require.NoError(t, err)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "default", saved.CurrentProfile)
	assert.Equal(t, "S2", saved.Profiles["staging"].AccessToken)
	assert.Equal(t, "A1", saved.Profiles["default"].AccessToken)
}

func TestLogin_SelectsProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":        "S1",
			"refreshToken": "T1",
			"username":     "bob",
		})
	}))
	defer server.Close()

	path := writeConfig(t, "http://prod.test")

	_, _, err := execute(t, "auth", "login", "--config", path, "--profile", "staging",
		"--server", server.URL, "--email", "bob@example.com", "--password", "pw")
	require.NoError(t, err)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", saved.CurrentProfile)
	assert.Equal(t, "S1", saved.Profiles["staging"].AccessToken)
}

func TestProductsList_SessionExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	path := writeConfig(t, server.URL)

	_, errOut, err := execute(t, "products", "list", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
	assert.Contains(t, errOut, "Session for profile 'default' has expired")

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, saved.Profiles["default"].AccessToken)
}

func TestProductsList_JSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/product/v1/orderPrice", r.URL.Path)
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		w.Write([]byte(`[{"id":2,"description":"B","price":20},{"id":1,"description":"A","price":10}]`))
	}))
	defer server.Close()

	out, _, err := execute(t, "products", "list", "--config", writeConfig(t, server.URL),
		"--sort", "price", "--order", "desc", "--output", "json")
	require.NoError(t, err)

	var products []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &products))
	require.Len(t, products, 2)
	assert.Equal(t, 20.0, products[0]["price"])
}

func TestProductsList_InvalidOrder(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	_, _, err := execute(t, "products", "list", "--config", writeConfig(t, server.URL),
		"--sort", "name", "--order", "random")
	assert.ErrorContains(t, err, "invalid sort order")
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestProductsUpdate_MergesFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/product/v1/get/4", r.URL.Path)
			w.Write([]byte(`{"id":4,"name":"Lamp","description":"Desk lamp","price":25,"quantity":3,"category":{"id":2}}`))
		case http.MethodPut:
			assert.Equal(t, "/product/v1/update/4", r.URL.Path)
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "Lamp", payload["name"])
			assert.Equal(t, "Desk lamp", payload["description"])
			assert.Equal(t, 19.99, payload["price"])
			assert.Equal(t, 3.0, payload["quantity"])
			assert.Equal(t, map[string]interface{}{"id": 2.0}, payload["category"])
			w.Write([]byte(`{"id":4,"name":"Lamp","description":"Desk lamp","price":19.99}`))
		}
	}))
	defer server.Close()

	out, _, err := execute(t, "products", "update", "4", "--config", writeConfig(t, server.URL), "--price", "19.99")
	require.NoError(t, err)
	assert.Contains(t, out, "Product updated: Lamp")
}

func TestRegister_PasswordMismatch(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	_, _, err := execute(t, "auth", "register", "--config", filepath.Join(t.TempDir(), "c.yaml"),
		"--server", server.URL, "-u", "bob", "-e", "bob@example.com",
		"--password", "one", "--confirm-password", "two")
	require.Error(t, err)
	assert.Equal(t, "Passwords do not match", err.Error())
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestImagesDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/api/user-image/3", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-data"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "me.png")
	out, _, err := execute(t, "images", "download", "3", "--user", "--file", dest,
		"--config", writeConfig(t, server.URL))
	require.NoError(t, err)
	assert.Contains(t, out, "Saved")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "png-data", string(data))
}

func TestImagesURL(t *testing.T) {
	out, _, err := execute(t, "images", "url", "12", "--config", writeConfig(t, "http://shop.test"))
	require.NoError(t, err)
	assert.Equal(t, "http://shop.test/product/v1/product-image/12", strings.TrimSpace(out))
}

func TestConfigProfilesAndUse(t *testing.T) {
	path := writeConfig(t, "http://shop.test")

	_, _, err := execute(t, "config", "set-server", "http://staging.test", "--config", path, "--profile", "staging")
	require.NoError(t, err)

	out, _, err := execute(t, "config", "profiles", "--config", path, "--output", "json")
	require.NoError(t, err)

	var rows []profileRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, profileRow{Name: "default", Current: true, Server: "http://shop.test", Username: "alice", LoggedIn: true}, rows[0])
	assert.Equal(t, profileRow{Name: "staging", Server: "http://staging.test"}, rows[1])

	_, _, err = execute(t, "config", "use", "staging", "--config", path)
	require.NoError(t, err)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", saved.CurrentProfile)

	_, _, err = execute(t, "config", "use", "nope", "--config", path)
	assert.ErrorContains(t, err, "profile 'nope' not found")
}

func TestInvalidOutputFormat(t *testing.T) {
	_, _, err := execute(t, "auth", "whoami", "--config", writeConfig(t, "http://shop.test"), "--output", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseID(tt.in, "product")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate(strings.Repeat("é", 20), 10))
}
