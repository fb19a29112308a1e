package ffmpeg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	ffmpegReleaseVersion = "6.1"
	ffmpegReleaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"

	EnvFFmpegPath  = "CLIPPER_FFMPEG_PATH"
	EnvFFprobePath = "CLIPPER_FFPROBE_PATH"
	EnvYtDlpPath   = "CLIPPER_YTDLP_PATH"
)

// ErrYtDlpNotFound is returned when no yt-dlp executable can be located.
// Unlike ffmpeg there is no bundled build to fall back to.
var ErrYtDlpNotFound = errors.New("yt-dlp not found: install it or set " + EnvYtDlpPath)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

var (
	ensureOnce sync.Once
	ensureErr  error
	ensurePath BinaryPaths
)

// Ensure resolves ffmpeg and ffprobe once per process.
func Ensure() (BinaryPaths, error) {
	ensureOnce.Do(func() {
		ensurePath, ensureErr = defaultResolver().resolve()
	})
	return ensurePath, ensureErr
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

// YtDlpPath returns the yt-dlp executable from the environment or PATH.
func YtDlpPath() (string, error) {
	return defaultResolver().ytDlp()
}

// resolver holds the process-facing hooks so resolution can run against a
// fake environment.
type resolver struct {
	getenv   func(string) string
	lookPath func(string) (string, error)
	cacheDir string
	fetch    func(url string) (io.ReadCloser, error)
	goos     string
	goarch   string
}

func defaultResolver() resolver {
	cacheDir, err := os.UserCacheDir()
	if err != nil || cacheDir == "" {
		cacheDir = os.TempDir()
	}
	return resolver{
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		cacheDir: cacheDir,
		fetch:    fetchHTTP,
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
	}
}

func (r resolver) resolve() (BinaryPaths, error) {
	ffmpegPath := r.getenv(EnvFFmpegPath)
	ffprobePath := r.getenv(EnvFFprobePath)
	if ffmpegPath != "" && ffprobePath != "" {
		return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
	}

	if ffmpegPath == "" {
		if found, err := r.lookPath("ffmpeg"); err == nil {
			ffmpegPath = found
		}
	}
	if ffprobePath == "" {
		if found, err := r.lookPath("ffprobe"); err == nil {
			ffprobePath = found
		}
	}

	if ffmpegPath != "" && ffprobePath != "" {
		return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
	}

	assetName, err := assetForPlatform(r.goos, r.goarch)
	if err != nil {
		return BinaryPaths{}, err
	}

	installDir := filepath.Join(
		r.cacheDir,
		"clipper",
		"ffmpeg",
		ffmpegReleaseVersion,
		r.goos,
		r.goarch,
	)
	exeSuffix := executableSuffix(r.goos)
	ffmpegPath = filepath.Join(installDir, "ffmpeg"+exeSuffix)
	ffprobePath = filepath.Join(installDir, "ffprobe"+exeSuffix)

	if binariesExist(ffmpegPath, ffprobePath) {
		return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return BinaryPaths{}, fmt.Errorf("create ffmpeg cache dir: %w", err)
	}

	url := fmt.Sprintf("%s/v%s/%s", ffmpegReleaseBaseURL, ffmpegReleaseVersion, assetName)
	body, err := r.fetch(url)
	if err != nil {
		return BinaryPaths{}, err
	}
	defer func() { _ = body.Close() }()

	if err := extractArchiveFromReader(assetName, body, installDir, exeSuffix); err != nil {
		return BinaryPaths{}, err
	}

	if !binariesExist(ffmpegPath, ffprobePath) {
		return BinaryPaths{}, errors.New("ffmpeg binaries not found after extraction")
	}

	if r.goos != "windows" {
		if err := os.Chmod(ffmpegPath, 0o755); err != nil {
			return BinaryPaths{}, fmt.Errorf("chmod ffmpeg: %w", err)
		}
		if err := os.Chmod(ffprobePath, 0o755); err != nil {
			return BinaryPaths{}, fmt.Errorf("chmod ffprobe: %w", err)
		}
	}

	return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

func (r resolver) ytDlp() (string, error) {
	if p := r.getenv(EnvYtDlpPath); p != "" {
		return p, nil
	}
	for _, name := range []string{"yt-dlp", "yt-dlp_linux", "yt-dlp_macos"} {
		if found, err := r.lookPath(name); err == nil {
			return found, nil
		}
	}
	return "", ErrYtDlpNotFound
}

func assetForPlatform(goos, goarch string) (string, error) {
	switch {
	case goos == "linux" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-64.zip", nil
	case goos == "linux" && goarch == "arm64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-arm-64.zip", nil
	case goos == "darwin" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-macos-64.zip", nil
	case goos == "windows" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-win-64.zip", nil
	default:
		return "", fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
}

func fetchHTTP(url string) (io.ReadCloser, error) {
	resp, err := resty.New().
		SetTimeout(5 * time.Minute).
		R().
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("download ffmpeg bundle: %w", err)
	}

	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		if body != nil {
			_ = body.Close()
		}
		return nil, fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status())
	}
	if body == nil {
		return nil, errors.New("download ffmpeg bundle: empty response")
	}
	return body, nil
}

func extractArchiveFromReader(assetName string, reader io.Reader, installDir, exeSuffix string) error {
	tmpFile, err := os.CreateTemp("", "clipper-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmpFile.Name()
	if _, err := io.Copy(tmpFile, reader); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(archivePath)
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(archivePath)
		return fmt.Errorf("close archive: %w", err)
	}
	defer func() { _ = os.Remove(archivePath) }()

	if err := extractArchive(archivePath, installDir, exeSuffix); err != nil {
		return fmt.Errorf("extract %s: %w", assetName, err)
	}
	return nil
}

func extractArchive(archivePath, installDir, exeSuffix string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	ffmpegFound := false
	ffprobeFound := false
	for _, file := range zipReader.File {
		name := filepath.Base(file.Name)
		if isBinary(name, "ffmpeg") {
			dest := filepath.Join(installDir, "ffmpeg"+exeSuffix)
			if err := extractZipFile(file, dest); err != nil {
				return err
			}
			ffmpegFound = true
			continue
		}
		if isBinary(name, "ffprobe") {
			dest := filepath.Join(installDir, "ffprobe"+exeSuffix)
			if err := extractZipFile(file, dest); err != nil {
				return err
			}
			ffprobeFound = true
		}
	}

	if !ffmpegFound || !ffprobeFound {
		return fmt.Errorf("ffmpeg archive missing required binaries")
	}

	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create ffmpeg output dir: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create ffmpeg binary: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("write ffmpeg binary: %w", err)
	}
	return nil
}

func binariesExist(ffmpegPath, ffprobePath string) bool {
	return fileExists(ffmpegPath) && fileExists(ffprobePath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func isBinary(name, tool string) bool {
	name = strings.ToLower(name)
	return name == tool || name == tool+".exe"
}

func executableSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}
