// Command fsck is a diagnostic tool, not the filesystem's production
// entry point (that remains out of scope per §1). It opens a
// store by URI, bootstraps the schema, and walks the chunks table
// verifying per-inode and store-wide accounting, the way the original
// fsck walks every block in the object store.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/gops/agent"
	"github.com/gofrs/flock"
	"github.com/shirou/gopsutil/disk"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/actorfs/actorfs/pkg/actor"
	"github.com/actorfs/actorfs/pkg/engine"
	"github.com/actorfs/actorfs/pkg/store"
	"github.com/actorfs/actorfs/pkg/utils"
)

var logger = utils.GetLogger("fsck")

func main() {
	app := &cli.App{
		Name:  "fsck",
		Usage: "diagnostic tools for an actorfs store",
		Commands: []*cli.Command{
			checkCommand(),
			dfCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("%s", err)
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "verify per-inode size and chunk accounting against a store",
		ArgsUsage: "STORE-URI",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "diag", Usage: "start a gops diagnostics agent for this process"},
		},
		Action: runCheck,
	}
}

func runCheck(cctx *cli.Context) error {
	if cctx.Args().Len() < 1 {
		return fmt.Errorf("STORE-URI is needed")
	}
	uri := cctx.Args().Get(0)

	if cctx.Bool("diag") {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warnf("gops agent: %s", err)
		}
	}

	lock, locked, err := acquireLock(uri)
	if err != nil {
		return err
	}
	if locked {
		defer lock.Unlock()
	}

	st, err := store.Open(uri, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	eng, err := engine.New(engine.Config{Actor: actor.NewStatic("fsck", st)})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}

	stats, err := eng.GetDeviceStats()
	if err != nil {
		return fmt.Errorf("device stats: %w", err)
	}

	progress := mpb.New(mpb.WithWidth(40))
	bar := progress.AddBar(stats.ChunkCount,
		mpb.PrependDecorators(decor.Name("scanning files")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)

	report, err := walkInvariants(st, bar)
	progress.Wait()
	if err != nil {
		return fmt.Errorf("walk invariants: %w", err)
	}

	if len(report.sizeMismatches) == 0 && len(report.orphanChunks) == 0 {
		logger.Infof("OK: %d inodes, %d chunks, space_used=%d/%d", stats.InodeCount, stats.ChunkCount, stats.SpaceUsed, stats.DeviceSize)
		return nil
	}

	for _, m := range report.sizeMismatches {
		logger.Errorf("ino %d: attr.size=%d but sum(chunks.length)=%d", m.ino, m.attrSize, m.chunkSum)
	}
	for _, ino := range report.orphanChunks {
		logger.Errorf("orphaned chunk rows for ino %d (no matching files row)", ino)
	}
	return fmt.Errorf("%d inconsistencies found", len(report.sizeMismatches)+len(report.orphanChunks))
}

func dfCommand() *cli.Command {
	return &cli.Command{
		Name:      "df",
		Usage:     "report engine device accounting plus host disk headroom",
		ArgsUsage: "STORE-URI [HOST-PATH]",
		Action:    runDf,
	}
}

func runDf(cctx *cli.Context) error {
	if cctx.Args().Len() < 1 {
		return fmt.Errorf("STORE-URI is needed")
	}
	uri := cctx.Args().Get(0)
	hostPath := "/"
	if cctx.Args().Len() >= 2 {
		hostPath = cctx.Args().Get(1)
	}

	st, err := store.Open(uri, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	eng, err := engine.New(engine.Config{Actor: actor.NewStatic("fsck", st)})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	stats, err := eng.GetDeviceStats()
	if err != nil {
		return err
	}

	fmt.Printf("device_size      %d\n", stats.DeviceSize)
	fmt.Printf("space_used       %d\n", stats.SpaceUsed)
	fmt.Printf("space_available  %d\n", stats.SpaceAvailable)
	fmt.Printf("inodes           %d\n", stats.InodeCount)
	fmt.Printf("chunks           %d\n", stats.ChunkCount)

	// Host disk headroom is informational only; it never feeds back
	// into the engine's own accounting, which stays purely logical.
	if usage, err := disk.Usage(hostPath); err == nil {
		fmt.Printf("host_free_bytes  %d (%s)\n", usage.Free, hostPath)
	}
	return nil
}

func acquireLock(uri string) (*flock.Flock, bool, error) {
	if len(uri) == 0 || containsScheme(uri) {
		// Only the local-file SQLite path benefits from a sidecar
		// lock; a shared MySQL/Postgres backend has its own
		// connection-level serialization.
		return nil, false, nil
	}
	path := strings.TrimPrefix(strings.TrimPrefix(uri, "sqlite://"), "sqlite3://")
	l := flock.New(path + ".lock")
	ok, err := l.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", uri, err)
	}
	if !ok {
		return nil, false, fmt.Errorf("store %s is locked by another process", uri)
	}
	return l, true, nil
}

func containsScheme(uri string) bool {
	for i := 0; i+2 < len(uri); i++ {
		if uri[i] == ':' && uri[i+1] == '/' && uri[i+2] == '/' {
			scheme := uri[:i]
			return scheme == "mysql" || scheme == "postgres" || scheme == "postgresql"
		}
	}
	return false
}

type sizeMismatch struct {
	ino      int64
	attrSize int64
	chunkSum int64
}

type invariantReport struct {
	sizeMismatches []sizeMismatch
	orphanChunks   []int64
}

// walkInvariants recomputes each file's size from its chunk rows and
// flags any mismatch against the stored attr.size, and separately
// flags chunk rows whose ino has no matching files row (a storage
// leak). It intentionally does not repair anything: this is read-only
// diagnostics.
func walkInvariants(st *store.Store, bar *mpb.Bar) (invariantReport, error) {
	type fileSizeRow struct {
		Ino  int64 `xorm:"ino"`
		Attr string
	}
	var files []fileSizeRow
	if err := st.Find(&files, "SELECT ino, attr FROM files WHERE is_dir = 0"); err != nil {
		return invariantReport{}, err
	}
	// The bar advances once per file row below, so its total is the
	// number of file rows, not the chunk count it was created with.
	bar.SetTotal(int64(len(files)), len(files) == 0)

	var report invariantReport
	for _, f := range files {
		var sum int64
		if _, err := st.Get(&sum, "SELECT COALESCE(SUM(length), 0) FROM chunks WHERE ino = ?", f.Ino); err != nil {
			return report, err
		}
		attrSize, ok := extractAttrSize(f.Attr)
		if ok && attrSize != sum {
			report.sizeMismatches = append(report.sizeMismatches, sizeMismatch{ino: f.Ino, attrSize: attrSize, chunkSum: sum})
		}
		bar.Increment()
	}

	var orphans []int64
	if err := st.Find(&orphans,
		"SELECT DISTINCT c.ino FROM chunks c LEFT JOIN files f ON f.ino = c.ino WHERE f.ino IS NULL"); err != nil {
		return report, err
	}
	report.orphanChunks = orphans
	return report, nil
}

// extractAttrSize pulls the "size" field out of a files.attr JSON blob
// without importing pkg/engine's Attr type, keeping this diagnostic
// tool decoupled from the engine's internal serialization format.
func extractAttrSize(attrJSON string) (int64, bool) {
	var partial struct {
		Size int64 `json:"size"`
	}
	if err := json.Unmarshal([]byte(attrJSON), &partial); err != nil {
		return 0, false
	}
	return partial.Size, true
}
