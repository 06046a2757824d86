// Command proofwatch imports payment proofs dropped into an inbox
// directory. Files are expected under <inbox>/<loanID>/<installmentID>/,
// get normalized, moved into the upload base dir and registered as
// PaymentProof rows. Files that do not resolve to an installment stay in
// place so they can be inspected.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lendtrack/models"
	"lendtrack/pkg/proofimg"
)

var db *gorm.DB

var verbose bool

var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
}

func main() {
	inbox := os.Getenv("PROOF_INBOX")
	if inbox == "" {
		inbox = "proof-inbox"
	}
	dirFlag := flag.String("dir", inbox, "inbox directory to watch for proof images")
	watch := flag.Bool("watch", true, "keep watching after the initial sweep")
	sweepEvery := flag.Duration("sweep", 5*time.Minute, "interval between full inbox sweeps")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-file logging")
	flag.Parse()

	db = mustInitDBFromEnv()

	if err := os.MkdirAll(*dirFlag, 0755); err != nil {
		log.Fatalf("failed to create inbox %s: %v", *dirFlag, err)
	}

	files := listProofFiles(*dirFlag)
	log.Printf("Initial sweep: %d candidate files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchInbox(*dirFlag, *sweepEvery, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}

func isSupportedExt(name string) bool {
	_, ok := extMime[strings.ToLower(filepath.Ext(name))]
	return ok
}

// listProofFiles walks the inbox tree and returns inbox-relative paths of
// candidate image files.
func listProofFiles(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !isSupportedExt(d.Name()) {
			return nil
		}
		if rel, err := filepath.Rel(dir, path); err == nil {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// watchInbox watches the inbox tree for new files. fsnotify is not
// recursive, so directories get watches added as they appear, and a
// periodic sweep catches anything the events missed.
func watchInbox(dir string, sweepEvery time.Duration, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := addWatchesRecursive(w, dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced, sweep every %s) ...", dir, sweepEvery)

	fileCh := make(chan string, 256)
	go func() {
		// debounce map of pending files so half-written drops settle first
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		sweep := time.NewTicker(sweepEvery)
		defer sweep.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create != fsnotify.Create {
					continue
				}
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addWatchesRecursive(w, ev.Name)
					continue
				}
				if !isSupportedExt(ev.Name) {
					continue
				}
				if rel, err := filepath.Rel(dir, ev.Name); err == nil {
					pending[rel] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for rel, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- rel
						delete(pending, rel)
					}
				}
			case <-sweep.C:
				for _, rel := range listProofFiles(dir) {
					if _, queued := pending[rel]; !queued {
						fileCh <- rel
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	runWorkerPool(dir, nil, workers, fileCh)
	return nil
}

func addWatchesRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func runWorkerPool(dir string, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range fileCh {
				processProofFile(dir, rel)
			}
		}()
	}
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	wg.Wait()
}

// resolveInstallment maps an inbox-relative path <loanID>/<installmentID>/file
// to its installment row. Ownership is verified so a proof can never land on
// another loan's installment.
func resolveInstallment(rel string) (models.Installment, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return models.Installment{}, fmt.Errorf("path %s is not <loanID>/<installmentID>/<file>", rel)
	}
	loanID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return models.Installment{}, fmt.Errorf("bad loan id %q", parts[0])
	}
	instID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return models.Installment{}, fmt.Errorf("bad installment id %q", parts[1])
	}
	var inst models.Installment
	if err := db.First(&inst, "id = ? AND loan_id = ?", instID, loanID).Error; err != nil {
		return models.Installment{}, fmt.Errorf("installment %d of loan %d not found", instID, loanID)
	}
	return inst, nil
}

func processProofFile(dir, rel string) {
	inst, err := resolveInstallment(rel)
	if err != nil {
		log.Printf("SKIP %s: %v", rel, err)
		return
	}

	src := filepath.Join(dir, filepath.FromSlash(rel))
	data, err := os.ReadFile(src)
	if err != nil {
		log.Printf("ERROR read %s: %v", rel, err)
		return
	}

	contentType := extMime[strings.ToLower(filepath.Ext(rel))]
	data, contentType = proofimg.Normalize(data, contentType)

	ext := strings.ToLower(filepath.Ext(rel))
	if contentType == "image/jpeg" && ext != ".jpg" && ext != ".jpeg" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("proofs/%s%s", uuid.NewString(), ext)
	dst := filepath.Join(uploadBaseDir(), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		log.Printf("ERROR mkdir for %s: %v", rel, err)
		return
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		log.Printf("ERROR write %s: %v", dst, err)
		return
	}

	proof := models.PaymentProof{
		InstallmentID: inst.ID,
		ImageURL:      "/uploads/" + key,
		ImageKey:      key,
		ContentType:   contentType,
		UploadedAt:    time.Now().UTC(),
	}
	if err := db.Create(&proof).Error; err != nil {
		log.Printf("ERROR register proof %s: %v", rel, err)
		_ = os.Remove(dst)
		return
	}
	if err := os.Remove(src); err != nil {
		log.Printf("WARN remove source %s: %v", rel, err)
	}
	log.Printf("PROOF imported file=%s installment=%d loan=%d key=%s", rel, inst.ID, inst.LoanID, key)
	logV("proof stored at %s", dst)
}
