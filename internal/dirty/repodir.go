package dirty

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vk/buildgraphgo/internal/ctxlog"
	"github.com/vk/buildgraphgo/internal/node"
)

// RepoDirChecker dirties repository-directory values if either:
//
//   - they were produced in a fetch-suppressed build, so that they are
//     re-created on subsequent builds with fetching enabled, or
//   - any of their managed side directories no longer exist on disk, which
//     lets the user regenerate managed contents if they become corrupt.
//
// A placeholder value (the repository was never materialized) passes as
// not-dirty before either check. Absence of a directory is a legitimate
// dirty signal, never an error: the checker only probes existence and reads
// no file contents or timestamps.
type RepoDirChecker struct{}

// NewRepoDirChecker creates the checker for repository-directory nodes.
func NewRepoDirChecker() *RepoDirChecker {
	return &RepoDirChecker{}
}

// Applies selects repository-directory keys.
func (c *RepoDirChecker) Applies(key node.Key) bool {
	return key.Kind() == node.KindRepoDir
}

// Check implements the staleness rules above. Both signals are independent;
// either marks the value dirty. The checker never produces a replacement
// value itself: recomputation is always delegated to the evaluator.
func (c *RepoDirChecker) Check(ctx context.Context, key node.Key, value node.Value, session *Session) Result {
	logger := ctxlog.FromContext(ctx)
	repoValue, ok := value.(*node.RepoDirValue)
	if !ok {
		// A mistyped value is unconditionally stale.
		return ResultDirty()
	}

	if !repoValue.RepositoryExists() {
		return ResultNotDirty()
	}
	if repoValue.FetchDelayed {
		logger.Debug("Repository produced under suppressed fetching, dirtying.", "key", key.String())
		return ResultDirty()
	}
	if !managedDirsExist(session.WorkspaceRoot, repoValue.ManagedDirs) {
		logger.Debug("Managed directory missing, dirtying.", "key", key.String())
		return ResultDirty()
	}
	return ResultNotDirty()
}

// managedDirsExist probes every managed directory for existence. A probe
// failure of any kind counts as absence.
func managedDirsExist(workspaceRoot string, managedDirs []string) bool {
	for _, dir := range managedDirs {
		if _, err := os.Stat(filepath.Join(workspaceRoot, dir)); err != nil {
			return false
		}
	}
	return true
}
