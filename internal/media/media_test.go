package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner simulates yt-dlp invocations.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	return f.run(ctx, name, args...)
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// TestSanitizeFilename checks the character replacement and trimming rules.
func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Podcast Episode!", "My_Podcast_Episode"},
		{"already-safe_name", "already-safe_name"},
		{"__trimmed__", "trimmed"},
		{"a b/c\\d", "a_b_c_d"},
		{"???", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestUploadFilename checks extension allow-listing and sanitization.
func TestUploadFilename(t *testing.T) {
	got, err := UploadFilename("Weekly Standup.mp3")
	if err != nil {
		t.Fatalf("UploadFilename: %v", err)
	}
	if got != "Weekly_Standup.mp3" {
		t.Fatalf("filename = %q", got)
	}

	if _, err := UploadFilename("notes.txt"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
	if _, err := UploadFilename("archive.MP4"); err != nil {
		t.Fatalf("uppercase extension rejected: %v", err)
	}
	if _, err := UploadFilename("noextension"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

// TestDownloadProducesMp3 checks argument construction and the returned
// path.
func TestDownloadProducesMp3(t *testing.T) {
	outDir := t.TempDir()

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			if name != "yt-dlp-test" {
				t.Fatalf("binary = %q", name)
			}
			if !hasArg(args, "-x") || !hasArg(args, "--audio-format") {
				t.Fatalf("missing extraction args: %v", args)
			}
			if hasArg(args, "--cookies") {
				t.Fatalf("unexpected cookies arg: %v", args)
			}

			// Simulate yt-dlp writing the converted mp3 for the template.
			var template string
			for i, a := range args {
				if a == "-o" {
					template = args[i+1]
				}
			}
			out := strings.Replace(template, "%(ext)s", "mp3", 1)
			if err := os.WriteFile(out, []byte("audio"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
			return commandResult{}, nil
		},
	}

	d := NewDownloaderForTests("yt-dlp-test", outDir, "", runner)
	path, err := d.Download(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if filepath.Ext(path) != ".mp3" || filepath.Dir(path) != outDir {
		t.Fatalf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
}

// TestDownloadPassesCookiesFile checks the optional cookies flag.
func TestDownloadPassesCookiesFile(t *testing.T) {
	outDir := t.TempDir()
	cookies := filepath.Join(outDir, "cookies.txt")
	if err := os.WriteFile(cookies, []byte("cookies"), 0o644); err != nil {
		t.Fatalf("write cookies: %v", err)
	}

	var sawCookies bool
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			sawCookies = hasArg(args, "--cookies")
			var template string
			for i, a := range args {
				if a == "-o" {
					template = args[i+1]
				}
			}
			out := strings.Replace(template, "%(ext)s", "mp3", 1)
			os.WriteFile(out, []byte("audio"), 0o644)
			return commandResult{}, nil
		},
	}

	d := NewDownloaderForTests("yt-dlp", outDir, cookies, runner)
	if _, err := d.Download(context.Background(), "https://youtu.be/abc"); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !sawCookies {
		t.Fatal("expected --cookies to be passed")
	}
}

// TestDownloadFailure surfaces yt-dlp stderr in the error.
func TestDownloadFailure(t *testing.T) {
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{Stderr: "video unavailable", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	d := NewDownloaderForTests("yt-dlp", t.TempDir(), "", runner)
	_, err := d.Download(context.Background(), "https://youtu.be/gone")
	if err == nil || !strings.Contains(err.Error(), "video unavailable") {
		t.Fatalf("error = %v, want yt-dlp stderr included", err)
	}
}

// TestFetchTitle checks the probe output handling.
func TestFetchTitle(t *testing.T) {
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			if !hasArg(args, "--no-download") {
				t.Fatalf("probe must not download, args=%v", args)
			}
			return commandResult{Stdout: "Interview with the Minister\n"}, nil
		},
	}

	d := NewDownloaderForTests("yt-dlp", t.TempDir(), "", runner)
	title, err := d.FetchTitle(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("FetchTitle() error = %v", err)
	}
	if title != "Interview with the Minister" {
		t.Fatalf("title = %q", title)
	}
}
