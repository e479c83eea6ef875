package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/services"
	"clipforge/internal/speech"
	"clipforge/internal/store"
	"clipforge/internal/translation"
)

const remoteCheckTimeout = 15 * time.Second

// CredentialLister exposes the registered credentials of one provider.
type CredentialLister interface {
	Provider() string
	List(ctx context.Context) ([]store.CredentialEntry, error)
}

// CheckDirectoryAccess verifies a directory exists and is readable and writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes
// available to unprivileged writers. A zero floor always passes.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, need %s", humanize.IBytes(free), humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free", humanize.IBytes(free))}
}

// CheckCredentials verifies the pool has at least one credential with quota left.
func CheckCredentials(ctx context.Context, pool CredentialLister) Result {
	name := fmt.Sprintf("Credentials (%s)", pool.Provider())
	entries, err := pool.List(ctx)
	if err != nil && !errors.Is(err, services.ErrNoCredentials) {
		return Result{Name: name, Detail: fmt.Sprintf("list failed (%v)", err)}
	}
	if len(entries) == 0 {
		return Result{Name: name, Detail: "none registered"}
	}
	var remaining int64
	usable := 0
	for _, entry := range entries {
		if entry.State() == store.CredentialExhausted {
			continue
		}
		usable++
		remaining += entry.Remaining()
	}
	if usable == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("all %d exhausted", len(entries))}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%d of %d usable, %s characters remaining", usable, len(entries), humanize.Comma(remaining)),
	}
}

// CheckSpeech lists voices with the first usable speech credential.
func CheckSpeech(ctx context.Context, synth speech.Synthesizer, pool CredentialLister) Result {
	const name = "Speech provider"
	secret, detail := usableSecret(ctx, pool)
	if secret == "" {
		return Result{Name: name, Detail: detail}
	}
	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	voices, err := synth.Voices(checkCtx, secret)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable, %d voices", len(voices))}
}

// CheckTranslation lists target languages with the first usable translation credential.
func CheckTranslation(ctx context.Context, translator translation.Translator, pool CredentialLister) Result {
	const name = "Translation provider"
	secret, detail := usableSecret(ctx, pool)
	if secret == "" {
		return Result{Name: name, Detail: detail}
	}
	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	languages, err := translator.Languages(checkCtx, secret, translation.KindTarget)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable, %d target languages", len(languages))}
}

// CheckSystemDeps evaluates the external binaries a run shells out to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}

func usableSecret(ctx context.Context, pool CredentialLister) (string, string) {
	entries, err := pool.List(ctx)
	if err != nil && !errors.Is(err, services.ErrNoCredentials) {
		return "", fmt.Sprintf("list credentials failed (%v)", err)
	}
	for _, entry := range entries {
		if entry.State() != store.CredentialExhausted {
			return entry.Secret, ""
		}
	}
	if len(entries) == 0 {
		return "", "skipped (no credentials)"
	}
	return "", "skipped (all credentials exhausted)"
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (provider unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (provider unreachable)"
	}
	if errors.Is(err, services.ErrCredentialExhausted) {
		return "credential rejected (quota exhausted)"
	}
	return err.Error()
}
