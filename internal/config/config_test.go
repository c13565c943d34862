package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("VIDEO_ID", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Playback.VideoID != "42" {
		t.Fatalf("video id=%q", cfg.Playback.VideoID)
	}
	if cfg.Playback.CorrectionInterval != 10*time.Second {
		t.Fatalf("correction interval=%v", cfg.Playback.CorrectionInterval)
	}
	if cfg.Playback.DriftThreshold != 5 || cfg.Playback.SeekTolerance != 10 {
		t.Fatalf("thresholds=%v/%v", cfg.Playback.DriftThreshold, cfg.Playback.SeekTolerance)
	}
	if cfg.Playback.AutoplayAttempts != 3 || cfg.Playback.AutoplayRetryDelay != 500*time.Millisecond {
		t.Fatalf("autoplay=%d/%v", cfg.Playback.AutoplayAttempts, cfg.Playback.AutoplayRetryDelay)
	}
	if cfg.Chat.ReconnectDelay != 5*time.Second || cfg.Chat.MaxMessageLength != 300 {
		t.Fatalf("chat=%+v", cfg.Chat)
	}
	if cfg.Presence.PollInterval != 3*time.Second {
		t.Fatalf("poll interval=%v", cfg.Presence.PollInterval)
	}
	if cfg.Session.Store != "memory" || cfg.Session.GuestPrefix != "Gost_" {
		t.Fatalf("session=%+v", cfg.Session)
	}
	if cfg.Telemetry.Driver != "none" {
		t.Fatalf("telemetry driver=%q", cfg.Telemetry.Driver)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	yaml := []byte("playback:\n  video_id: \"7\"\n  drift_threshold: 2.5\nchat:\n  reconnect_delay: 1s\nsession:\n  store: redis\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", dir)
	t.Setenv("REDIS_ADDRESS", "redis:6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Playback.VideoID != "7" || cfg.Playback.DriftThreshold != 2.5 {
		t.Fatalf("playback=%+v", cfg.Playback)
	}
	if cfg.Chat.ReconnectDelay != time.Second {
		t.Fatalf("reconnect delay=%v", cfg.Chat.ReconnectDelay)
	}
	if cfg.Session.Store != "redis" || cfg.Session.Redis.Address != "redis:6380" {
		t.Fatalf("session=%+v", cfg.Session)
	}
}

func TestValidate_VideoID(t *testing.T) {
	tests := []struct {
		name    string
		videoID string
		wantErr bool
	}{
		{name: "numeric", videoID: "42"},
		{name: "missing", videoID: "", wantErr: true},
		{name: "slug", videoID: "my-premiere", wantErr: true},
		{name: "float", videoID: "4.2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Playback: PlaybackConfig{VideoID: tt.videoID}}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.videoID == "" && !errors.Is(err, ErrMissingVideoID) {
				t.Fatalf("Validate() error = %v, want ErrMissingVideoID", err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
