// Command libbga builds the C shared library used by host applications:
//
//	go build -buildmode=c-shared -o libbga.so ./cmd/libbga
//
// Strings returned by bga_analyze, bga_available_analyzers, bga_script_target and
// bga_version must be released with bga_free_string.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"os"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bga/internal/bridge"
	"bga/internal/classifier"
	"bga/internal/config"
	"bga/internal/decompile"
	"bga/internal/engine"
	"bga/internal/project"
)

var (
	once    sync.Once
	surface *bridge.Bridge
)

// instance builds the bridge from the environment on first use.
func instance() *bridge.Bridge {
	once.Do(func() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		cfg := config.Load()
		if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(level)
		}

		opts := engine.Options{
			Workers:      cfg.WorkerCount,
			BackupSuffix: cfg.BackupSuffix,
			RenpyOutput:  cfg.RenpyOutput,
			Decompiler:   decompile.New(cfg.UnrpycCommand, cfg.DecompileTimeout),
		}
		surface = bridge.New(opts, loadFilters(cfg.StorePath))
	})
	return surface
}

// loadFilters compiles the learned patterns of every engine. A missing store means none.
func loadFilters(path string) map[string]*classifier.Filter {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	store, err := project.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("store", path).Msg("Failed to open project store")
		return nil
	}
	defer store.Close()

	filters, err := store.CompiledFilters()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load filter patterns")
		return nil
	}
	return filters
}

//export bga_analyze
func bga_analyze(engineName, path *C.char) *C.char {
	if engineName == nil || path == nil {
		return nil
	}
	out, ok := instance().Analyze(context.Background(), C.GoString(engineName), C.GoString(path))
	if !ok {
		return nil
	}
	return C.CString(out)
}

//export bga_save
func bga_save(engineName, texts *C.char) C.int {
	if engineName == nil {
		return bridge.StatusEngineEncoding
	}
	if texts == nil {
		return bridge.StatusTextsEncoding
	}
	return C.int(instance().Save(context.Background(), C.GoString(engineName), C.GoString(texts)))
}

//export bga_available_analyzers
func bga_available_analyzers() *C.char {
	return C.CString(instance().Available())
}

//export bga_script_target
func bga_script_target(engineName, projectPath *C.char) *C.char {
	if engineName == nil || projectPath == nil {
		return nil
	}
	out, ok := instance().ScriptTarget(C.GoString(engineName), C.GoString(projectPath))
	if !ok {
		return nil
	}
	return C.CString(out)
}

//export bga_version
func bga_version() *C.char {
	return C.CString(bridge.Version)
}

//export bga_free_string
func bga_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func main() {}
