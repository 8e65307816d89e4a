package app

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tturner/nxsync/internal/filecopy"
	"github.com/tturner/nxsync/internal/history"
)

// fakeSwitch answers NX-API requests from the files under root/bootflash.
type fakeSwitch struct {
	root string
	free int64
}

func (f *fakeSwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var reqs []struct {
		Method string `json:"method"`
		Params struct {
			Cmd string `json:"cmd"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil || len(reqs) != 1 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cmd := reqs[0].Params.Cmd

	var reply map[string]any
	switch {
	case cmd == "dir bootflash:":
		reply = map[string]any{"result": map[string]any{
			"msg": fmt.Sprintf("Usage for bootflash://sup-local\n 1 bytes used\n %d bytes free\n", f.free),
		}}
	case strings.HasPrefix(cmd, "dir bootflash:/"):
		name := strings.TrimPrefix(cmd, "dir bootflash:/")
		msg := "No such file or directory\n"
		if _, err := os.Stat(filepath.Join(f.root, "bootflash", name)); err == nil {
			msg = "   16  Jan 01 00:00:00 2024  " + name + "\n"
		}
		reply = map[string]any{"result": map[string]any{"msg": msg}}
	case strings.HasPrefix(cmd, "show file bootflash:") && strings.HasSuffix(cmd, " md5sum"):
		name := strings.TrimSuffix(strings.TrimPrefix(cmd, "show file bootflash:"), " md5sum")
		data, err := os.ReadFile(filepath.Join(f.root, "bootflash", name))
		if err != nil {
			reply = map[string]any{"error": map[string]any{
				"code":    400,
				"message": "Input CLI command error",
				"data":    map[string]any{"msg": "No such file or directory", "clierror": "No such file or directory\n"},
			}}
			break
		}
		sum := md5.Sum(data) //nolint:gosec
		reply = map[string]any{"result": map[string]any{
			"body": map[string]any{"file_content_md5sum": hex.EncodeToString(sum[:])},
		}}
	default:
		reply = map[string]any{"error": map[string]any{
			"code": 400, "message": "Input CLI command error",
			"data": map[string]any{"msg": "Invalid command", "clierror": "% Invalid command\n"},
		}}
	}
	reply["jsonrpc"] = "2.0"
	reply["id"] = 1

	w.Header().Set("Content-Type", "application/json-rpc")
	_ = json.NewEncoder(w).Encode([]any{reply})
}

type testEnv struct {
	dir     string
	root    string
	config  string
	history string
	sw      *fakeSwitch
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		root:    filepath.Join(dir, "device"),
		config:  filepath.Join(dir, "nxsync.yaml"),
		history: filepath.Join(dir, "history.db"),
	}
	env.sw = &fakeSwitch{root: env.root, free: 3 << 20}

	srv := httptest.NewServer(env.sw)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	cfg := fmt.Sprintf(`defaults:
  protocol: local
  api: nxapi
  api_transport: http
  local_root: %s
history_file: %s
devices:
  - name: leaf1
    host: %s
    username: admin
    password: secret
    api_port: %s
`, env.root, env.history, u.Hostname(), u.Port())
	if err := os.WriteFile(env.config, []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *testEnv) common() CommonOptions {
	return CommonOptions{ConfigPath: e.config, Device: "leaf1"}
}

func (e *testEnv) writeLocal(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPushThenSkip(t *testing.T) {
	env := newTestEnv(t)
	data := bytes.Repeat([]byte("nxos"), 4096)
	local := env.writeLocal(t, "image.bin", data)
	ctx := context.Background()

	var out bytes.Buffer
	opts := PushOptions{CommonOptions: env.common(), LocalPath: local, Verify: true, NoProgress: true}
	if err := RunPush(ctx, opts, &out); err != nil {
		t.Fatalf("RunPush: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(env.root, "bootflash", "image.bin"))
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("device copy differs: %v", err)
	}
	if !strings.Contains(out.String(), "pushed") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := RunPush(ctx, opts, &out); err != nil {
		t.Fatalf("second RunPush: %v", err)
	}
	if !strings.Contains(out.String(), "already matches") {
		t.Errorf("expected skip, output = %q", out.String())
	}

	store, err := history.Open(env.history)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	recs, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("history has %d records, want 2", len(recs))
	}
	if recs[0].State != history.StateSkipped || recs[1].State != history.StateCompleted {
		t.Errorf("states = %s, %s", recs[0].State, recs[1].State)
	}
	if recs[1].Device != "leaf1" || recs[1].RemotePath != "bootflash:image.bin" || recs[1].Bytes != int64(len(data)) {
		t.Errorf("record = %+v", recs[1])
	}
}

func TestPushNotEnoughSpace(t *testing.T) {
	env := newTestEnv(t)
	env.sw.free = 10
	local := env.writeLocal(t, "big.bin", make([]byte, 11))

	err := RunPush(context.Background(), PushOptions{CommonOptions: env.common(), LocalPath: local, NoProgress: true}, &bytes.Buffer{})
	var terr *filecopy.TransferError
	if !errors.As(err, &terr) || terr.Stage != filecopy.StagePreflight {
		t.Fatalf("expected preflight TransferError, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.root, "bootflash", "big.bin")); err == nil {
		t.Error("file should not have been copied")
	}
}

func TestPull(t *testing.T) {
	env := newTestEnv(t)
	if err := os.MkdirAll(filepath.Join(env.root, "bootflash"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.root, "bootflash", "startup.cfg"), []byte("hostname leaf1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	local := filepath.Join(env.dir, "backups", "leaf1", "startup.cfg")
	var out bytes.Buffer
	if err := RunPull(context.Background(), PullOptions{CommonOptions: env.common(), LocalPath: local, NoProgress: true}, &out); err != nil {
		t.Fatalf("RunPull: %v", err)
	}
	got, err := os.ReadFile(local)
	if err != nil || string(got) != "hostname leaf1\n" {
		t.Fatalf("pulled %q, %v", got, err)
	}
}

func TestCheckJSON(t *testing.T) {
	env := newTestEnv(t)
	local := env.writeLocal(t, "a.txt", []byte("hello"))
	ctx := context.Background()

	var out bytes.Buffer
	if err := RunCheck(ctx, CheckOptions{CommonOptions: env.common(), LocalPath: local, JSON: true}, &out); err != nil {
		t.Fatalf("RunCheck: %v", err)
	}
	var res CheckResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if res.FreeBytes != 3<<20 || !res.LocalExists || !res.EnoughSpace || res.RemoteExists || res.Match {
		t.Errorf("before push: %+v", res)
	}
	if res.LocalMD5 != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("LocalMD5 = %s", res.LocalMD5)
	}

	if err := RunPush(ctx, PushOptions{CommonOptions: env.common(), LocalPath: local, NoProgress: true}, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunPush: %v", err)
	}

	out.Reset()
	if err := RunCheck(ctx, CheckOptions{CommonOptions: env.common(), LocalPath: local, JSON: true}, &out); err != nil {
		t.Fatalf("RunCheck: %v", err)
	}
	res = CheckResult{}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.RemoteExists || !res.Match || res.RemoteMD5 != res.LocalMD5 {
		t.Errorf("after push: %+v", res)
	}
}

func TestCheckReport(t *testing.T) {
	env := newTestEnv(t)
	local := env.writeLocal(t, "a.txt", []byte("hello"))

	var out bytes.Buffer
	if err := RunCheck(context.Background(), CheckOptions{CommonOptions: env.common(), LocalPath: local}, &out); err != nil {
		t.Fatalf("RunCheck: %v", err)
	}
	for _, want := range []string{"bootflash:a.txt", "free space", "3.0 MiB", "match"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}

func TestHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := RunHash(HashOptions{Path: path, BlockSize: 2}, &out); err != nil {
		t.Fatalf("RunHash: %v", err)
	}
	if want := "5d41402abc4b2a76b9719d911017c592  " + path + "\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	var nf *filecopy.LocalFileNotFoundError
	if err := RunHash(HashOptions{Path: filepath.Join(dir, "none")}, &out); !errors.As(err, &nf) {
		t.Errorf("expected LocalFileNotFoundError, got %v", err)
	}
	if err := RunHash(HashOptions{Path: path, BlockSize: -1}, &out); err == nil {
		t.Error("expected error for negative block size")
	}
}

func TestHistoryEmptyJSON(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	if err := RunHistory(HistoryOptions{ConfigPath: env.config, JSON: true}, &out); err != nil {
		t.Fatalf("RunHistory: %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessionRequiresDevice(t *testing.T) {
	env := newTestEnv(t)
	_, err := openSession(CommonOptions{ConfigPath: env.config})
	if err == nil {
		t.Fatal("expected error without device or target")
	}
	if _, err := openSession(CommonOptions{ConfigPath: env.config, Device: "spine9"}); err == nil {
		t.Fatal("expected error for unknown device")
	}
	if _, err := openSession(CommonOptions{ConfigPath: env.config, Device: "leaf1", Protocol: "ftp"}); err == nil {
		t.Fatal("expected error for bad protocol")
	}
}

func TestSessionFromTarget(t *testing.T) {
	env := newTestEnv(t)
	s, err := openSession(CommonOptions{ConfigPath: env.config, Target: "ssh://ops:pw@10.1.1.1:2222?insecure=true", API: "ssh"})
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer s.Close()

	if s.name != "10.1.1.1" || s.device.Username != "ops" || s.device.Password != "pw" || s.device.Port != 2222 {
		t.Errorf("device = %+v", s.device)
	}
	if !s.device.SkipVerify() || s.device.FileSystem != "bootflash:" || s.device.Protocol != "local" {
		t.Errorf("defaults not applied: %+v", s.device)
	}
	o := s.sshOptions(nil)
	if o.User != "ops" || o.Port != 2222 || !o.InsecureIgnoreHost {
		t.Errorf("ssh options = %+v", o)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "nxsync.yaml")
	var out bytes.Buffer
	if err := RunConfigInit(path, &out); err != nil {
		t.Fatalf("RunConfigInit: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	if err := RunConfigInit(path, &out); err == nil {
		t.Error("expected error when file exists")
	}
}
