/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"screenwright/internal/archive"
	"screenwright/internal/backend"
	"screenwright/internal/config"
	"screenwright/internal/crash"
	"screenwright/internal/legacy"
	applog "screenwright/internal/log"
	"screenwright/internal/ocr"
	"screenwright/internal/pipeline"
	"screenwright/internal/screenplay"
	"screenwright/internal/version"
)

func usage() {
	fmt.Println("Screenwright — screenplay parsing and normalization")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  screenwright version|-v|--version            Show version")
	fmt.Println("  screenwright parse <file> [flags]            Parse a screenplay and print the result")
	fmt.Println("      -password <pw>    password for encrypted PDFs")
	fmt.Println("      -json             print the full result envelope as JSON")
	fmt.Println("      -legacy           print legacy flat records as JSON")
	fmt.Println("      -save             store the parsed script in the local archive")
	fmt.Println("  screenwright list                            List archived scripts")
	fmt.Println("  screenwright search <term>                   Search the local archive")
	fmt.Println("  screenwright push <id>                       Upload an archived script to the backend")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	defer func() { crash.Recover("cli") }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Screenwright — screenplay parsing and normalization")
		fmt.Println(version.String())
	case "parse":
		runParse(l, args[2:])
	case "list":
		runList(l)
	case "search":
		if len(args) < 3 {
			fmt.Println("search requires <term>")
			usage()
			os.Exit(2)
		}
		runSearch(l, args[2])
	case "push":
		if len(args) < 3 {
			fmt.Println("push requires <id>")
			usage()
			os.Exit(2)
		}
		runPush(l, args[2])
	default:
		usage()
		os.Exit(2)
	}
}

func runParse(l *slog.Logger, args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	password := fs.String("password", "", "password for encrypted PDFs")
	asJSON := fs.Bool("json", false, "print the full result envelope as JSON")
	asLegacy := fs.Bool("legacy", false, "print legacy flat records as JSON")
	save := fs.Bool("save", false, "store the parsed script in the local archive")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("parse requires <file>")
		usage()
		os.Exit(2)
	}
	path := fs.Arg(0)

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	engine := ocr.New(
		ocr.WithBinaries(cfg.OCR.TesseractPath, cfg.OCR.PdftoppmPath),
		ocr.WithLanguage(cfg.OCR.Language),
	)
	var opts []pipeline.Option
	if cfg.OCR.TimeoutSec > 0 {
		opts = append(opts, pipeline.WithOCRTimeout(time.Duration(cfg.OCR.TimeoutSec)*time.Second))
	}
	p := pipeline.New(engine, opts...)

	res := p.Run(context.Background(), screenplay.ScriptFile{
		Name:        filepath.Base(path),
		Data:        data,
		PDFPassword: *password,
	})
	if !res.Success {
		fmt.Println("Error:", res.Error)
		os.Exit(1)
	}

	switch {
	case *asLegacy:
		printJSON(legacy.Flatten(res.Data))
	case *asJSON:
		printJSON(res)
	default:
		printSummary(res)
	}

	if *save {
		a, err := archive.Open(archiveDir(cfg))
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		defer a.Close()
		id, err := a.Save(context.Background(), res.Data, res.Blocked)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		fmt.Println("Archived as", id)
	}
}

func runList(l *slog.Logger) {
	a := openArchive(l)
	defer a.Close()
	entries, err := a.List(context.Background())
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	printEntries(entries)
}

func runSearch(l *slog.Logger, term string) {
	a := openArchive(l)
	defer a.Close()
	entries, err := a.Search(context.Background(), term)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	printEntries(entries)
}

func runPush(l *slog.Logger, id string) {
	cfg, token, err := config.Load()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	a, err := archive.Open(archiveDir(cfg))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer a.Close()
	s, err := a.Get(id)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	client := backend.NewClient(cfg.Backend.BaseURL, token)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Backend.TimeoutMs)*time.Millisecond)
	defer cancel()
	sid, err := client.UploadScript(ctx, id, s, false)
	if err != nil {
		l.Error("push failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Printf("Pushed %s as server id %d\n", id, sid)
}

func openArchive(l *slog.Logger) *archive.Archive {
	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	a, err := archive.Open(archiveDir(cfg))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	return a
}

func archiveDir(cfg config.AppConfig) string {
	if cfg.Archive.Dir != "" {
		return cfg.Archive.Dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "Screenwright", "archive")
}

func printSummary(res screenplay.ParseResult) {
	s := res.Data
	if s.Title != "" {
		fmt.Println("Title:", s.Title)
	}
	if s.Author != "" {
		fmt.Println("Author:", s.Author)
	}
	fmt.Println("Format:", s.Format)
	fmt.Println("Pages:", s.Pages)
	fmt.Println("Scenes:", len(s.Scenes))
	fmt.Println("Characters:", len(s.Characters))
	fmt.Printf("Confidence: %.2f\n", res.Confidence)
	if res.Compliance != nil {
		fmt.Printf("Quality: %.2f (pass=%v)\n", res.Compliance.OverallScore, res.Compliance.PassesThreshold)
		for _, is := range res.Compliance.Issues {
			fmt.Println("  issue:", is)
		}
	}
	for _, w := range res.Warnings {
		fmt.Println("  warning:", w)
	}
	if res.Blocked {
		fmt.Println("Blocked: the script did not meet the quality threshold")
	}
}

func printEntries(entries []archive.Entry) {
	if len(entries) == 0 {
		fmt.Println("No archived scripts.")
		return
	}
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.Filename
		}
		fmt.Printf("%-40s  %-8s  scenes=%-3d chars=%-3d conf=%.2f  %s\n",
			e.ID, e.Format, e.Scenes, e.Characters, e.Confidence, title)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
