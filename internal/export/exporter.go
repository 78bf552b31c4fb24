package export

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/FreshLemonLeaf/3dafy/internal/box"
	"github.com/FreshLemonLeaf/3dafy/internal/logger"
	"github.com/FreshLemonLeaf/3dafy/pkg/gltf"
)

var (
	// ErrExportBusy rejects an export started while another is running.
	ErrExportBusy = errors.New("an export is already in progress")

	// ErrNoImage rejects an export with no image loaded.
	ErrNoImage = errors.New("no image loaded")
)

// Source provides the model to serialize. Ready blocks until any
// in-flight image decode has settled, so an export never observes a
// texture as absent while it is still decoding.
type Source interface {
	Ready(ctx context.Context) error
	Model() *box.Model
}

// Exporter writes GLB files. Exports are exclusive: a second call while
// one is in flight fails with ErrExportBusy instead of interleaving.
type Exporter struct {
	busy atomic.Bool
}

// NewExporter creates an exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Busy reports whether an export is in flight.
func (e *Exporter) Busy() bool {
	return e.busy.Load()
}

// Export serializes the source's model to path. The GLB is encoded fully
// in memory and its header verified before anything touches the disk; a
// failed export leaves no file behind.
func (e *Exporter) Export(ctx context.Context, src Source, path string) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrExportBusy
	}
	defer e.busy.Store(false)

	if err := src.Ready(ctx); err != nil {
		return fmt.Errorf("waiting for pending decode: %w", err)
	}

	model := src.Model()
	if model == nil || model.Materials[box.FaceFront].Kind != box.KindTexture {
		return ErrNoImage
	}

	doc, bin, err := BuildDocument(model, DocumentOptions{})
	if err != nil {
		logger.Error("building glTF document failed", zap.Error(err))
		return err
	}

	data, err := gltf.EncodeGLB(doc, bin)
	if err != nil {
		logger.Error("encoding GLB failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	// The container header declares the total length; re-check it
	// against the bytes actually produced before writing.
	if declared := binary.LittleEndian.Uint32(data[8:12]); int(declared) != len(data) {
		return fmt.Errorf("%w: header declares %d bytes, produced %d", ErrSerialization, declared, len(data))
	}

	if err := writeFileAtomic(path, data); err != nil {
		logger.Error("writing GLB failed", zap.String("path", path), zap.Error(err))
		return err
	}

	logger.Info("exported model",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
		zap.Int("primitives", len(doc.Meshes[0].Primitives)),
		zap.Int("triangles", doc.TriangleCount()))
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, so a failure never leaves a partial file at path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".3dafy-*.glb")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpPath)
		if werr != nil {
			return fmt.Errorf("writing %s: %w", path, werr)
		}
		return fmt.Errorf("writing %s: %w", path, cerr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
