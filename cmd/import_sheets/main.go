package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/kpi-visual-backend/internal/app"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/ingestion/etl"
)

type fileList []string

func (l *fileList) String() string { return strings.Join(*l, ",") }
func (l *fileList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// import_sheets loads spreadsheets straight into the fact tables without going
// through the upload queue. Each -file is TYPE=PATH, e.g. ifir_row=./row.xlsx.
func main() {
	var files fileList
	var dryRun bool
	flag.Var(&files, "file", "file_type=path to ingest (repeatable)")
	flag.BoolVar(&dryRun, "dry-run", false, "validate arguments without writing")
	flag.Parse()

	if len(files) == 0 {
		fmt.Println("no -file values provided")
		os.Exit(2)
	}

	type job struct {
		ft   domaintasks.FileType
		path string
	}
	jobs := make([]job, 0, len(files))
	for _, f := range files {
		kind, path, ok := strings.Cut(f, "=")
		ft, valid := domaintasks.ParseFileType(strings.TrimSpace(kind))
		if !ok || !valid || strings.TrimSpace(path) == "" {
			fmt.Printf("invalid -file %q (want file_type=path)\n", f)
			os.Exit(2)
		}
		jobs = append(jobs, job{ft: ft, path: strings.TrimSpace(path)})
	}
	if dryRun {
		for _, j := range jobs {
			fmt.Printf("[dry-run] %s <- %s\n", j.ft, j.path)
		}
		return
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	batchID := uuid.NewString()
	failed := 0
	for _, j := range jobs {
		n, err := ingestOne(ctx, application.Services.ETL, j.ft, j.path, batchID)
		if err != nil {
			failed++
			fmt.Printf("%s %s: %v\n", j.ft, j.path, err)
			continue
		}
		fmt.Printf("%s %s: %d rows\n", j.ft, j.path, n)
	}
	if n, err := application.Services.ETL.RefreshMappings(ctx); err != nil {
		fmt.Printf("refresh odm/plant mapping: %v\n", err)
		failed++
	} else {
		fmt.Printf("odm/plant mapping: %d pairs\n", n)
	}
	if flushed := application.Services.Cache.Flush(ctx); flushed > 0 {
		fmt.Printf("flushed %d cached responses\n", flushed)
	}
	if failed > 0 {
		application.Close()
		os.Exit(1)
	}
}

func ingestOne(ctx context.Context, pipeline *etl.Pipeline, ft domaintasks.FileType, path, batchID string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return pipeline.IngestFile(ctx, ft, f, etl.Source{Location: abs, TaskID: batchID})
}
