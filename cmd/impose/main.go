// Command impose runs imposition jobs locally and manages API client keys.
//
//	impose run -settings s.json -job job.json -o out.pdf source.pdf
//	impose plan source.pdf
//	impose keygen -dir keys/
//	impose token -key keys/<kid>_private.pem -client shop
package main

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zeptools/gw-impose/impose"
	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/merge"
	"github.com/zeptools/gw-impose/pdfs"
	"github.com/zeptools/gw-impose/sec"
)

const usage = "usage: impose run|plan|keygen|token [flags] [args]"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, args)
	case "plan":
		err = planCmd(args)
	case "keygen":
		err = keygenCmd(args)
	case "token":
		err = tokenCmd(args)
	default:
		err = fmt.Errorf("unknown command %q\n%s", os.Args[1], usage)
	}
	if err != nil {
		stop()
		log.Fatalf("[ERROR] %v", err)
	}
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func printJSON(v any) error {
	return json.MarshalWrite(os.Stdout, v, jsontext.WithIndent("  "))
}

// loadCatalog reads a JSON array of sheets, or the builtin list when path is empty
func loadCatalog(path string) (pdfs.Catalog, error) {
	if path == "" {
		return pdfs.DefaultCatalog(), nil
	}
	c := jobs.Conf{}
	if err := readJSONFile(path, &c.Sheets); err != nil {
		return nil, err
	}
	return c.Catalog(), nil
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	settingsPath := fs.String("settings", "", "settings JSON file; empty = automatic layout")
	jobPath := fs.String("job", "", "job info JSON file")
	jobID := fs.String("id", "", "job id; overrides the job file")
	out := fs.String("o", "", "output PDF; empty = <id>.pdf in the current directory")
	sheetsPath := fs.String("sheets", "", "sheet catalog JSON file; empty = builtin sizes")
	backend := fs.String("merger", merge.BackendPDFCPU, "merger backend: pdfcpu or ghostscript")
	gsBinary := fs.String("gs", "", "ghostscript binary")
	tempDir := fs.String("temp", "", "directory for batch files")
	batchSize := fs.Int("batch", 0, "sheets per batch file")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: impose run [flags] <source.pdf>")
	}

	req := jobs.Request{SourcePath: fs.Arg(0), OutputPath: *out}
	if *settingsPath != "" {
		var s impose.Settings
		if err := readJSONFile(*settingsPath, &s); err != nil {
			return err
		}
		req.Settings = &s
	}
	if *jobPath != "" {
		if err := readJSONFile(*jobPath, &req.Job); err != nil {
			return err
		}
	}
	if *jobID != "" {
		req.Job.ID = *jobID
	}
	if req.Job.ID == "" {
		req.Job.ID = strings.TrimSuffix(filepath.Base(req.SourcePath), filepath.Ext(req.SourcePath))
	}

	catalog, err := loadCatalog(*sheetsPath)
	if err != nil {
		return err
	}
	merger, err := merge.New(merge.Options{Backend: *backend, Binary: *gsBinary})
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	engine := jobs.NewEngine(catalog, merger, jobs.Conf{TempDir: *tempDir, OutputDir: cwd, BatchSize: *batchSize})
	res, err := engine.Run(ctx, req)
	if err != nil {
		return err
	}
	log.Printf("[INFO] wrote %s: %d pages on %d sheets in %s", res.OutputPath, res.Pages, res.Sheets, res.Duration.Round(time.Millisecond))
	return printJSON(res)
}

type planOutput struct {
	Source      string          `json:"source"`
	Pages       int             `json:"pages"`
	WidthPt     float64         `json:"width_pt"`
	HeightPt    float64         `json:"height_pt"`
	Columns     int             `json:"columns"`
	Rows        int             `json:"rows"`
	Sheet       string          `json:"sheet"`
	Orientation string          `json:"orientation"`
	WasteSqIn   float64         `json:"waste_sq_in"`
	Settings    impose.Settings `json:"settings"`
}

func planCmd(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	sheetsPath := fs.String("sheets", "", "sheet catalog JSON file; empty = builtin sizes")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: impose plan [-sheets file] <source.pdf>")
	}
	catalog, err := loadCatalog(*sheetsPath)
	if err != nil {
		return err
	}
	src, err := pdfs.OpenSource(fs.Arg(0))
	if err != nil {
		return err
	}
	layout, err := impose.AutoPlan(catalog, src.Width, src.Height)
	if err != nil {
		return err
	}
	return printJSON(planOutput{
		Source:      src.Path,
		Pages:       src.PageCount,
		WidthPt:     src.Width,
		HeightPt:    src.Height,
		Columns:     layout.Columns,
		Rows:        layout.Rows,
		Sheet:       layout.Sheet.Name,
		Orientation: layout.Orientation.String(),
		WasteSqIn:   layout.Waste / (pdfs.PointsPerInch * pdfs.PointsPerInch),
		Settings:    layout.Settings(),
	})
}

func keygenCmd(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory for <kid>_private.pem and <kid>_public.pem")
	bits := fs.Int("bits", 2048, "RSA key size")
	_ = fs.Parse(args)
	if err := os.MkdirAll(*dir, 0o700); err != nil {
		return err
	}
	kid, err := sec.GenerateClientKeyPair(*dir, *bits)
	if err != nil {
		return err
	}
	fmt.Println(kid)
	return nil
}

func tokenCmd(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	keyPath := fs.String("key", "", "<kid>_private.pem")
	kid := fs.String("kid", "", "key id; empty = taken from the key file name")
	clientID := fs.String("client", "", "client id (sub claim)")
	audience := fs.String("aud", "", "audience")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	_ = fs.Parse(args)
	if *keyPath == "" || *clientID == "" {
		return fmt.Errorf("usage: impose token -key file -client id [-kid id] [-aud aud] [-ttl 1h]")
	}
	if *kid == "" {
		*kid = strings.TrimSuffix(filepath.Base(*keyPath), "_private.pem")
	}
	key, err := sec.LoadLocalPrivatePEMKey(*keyPath)
	if err != nil {
		return err
	}
	token, err := sec.SignClientToken(*clientID, *audience, key, *kid, time.Now(), *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
