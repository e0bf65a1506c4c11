package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"asciireel/internal/media/ffmpeg"
	"asciireel/internal/media/ffprobe"
	"asciireel/internal/media/magick"
)

type fakeProber struct {
	info  ffprobe.VideoInfo
	err   error
	calls int
}

func (f *fakeProber) Probe(context.Context, string) (ffprobe.VideoInfo, error) {
	f.calls++
	return f.info, f.err
}

type fakeExtractor struct {
	frames int
	err    error
	calls  int
	last   ffmpeg.ExtractRequest
}

func (f *fakeExtractor) ExtractFrames(_ context.Context, req ffmpeg.ExtractRequest) error {
	f.calls++
	f.last = req
	if f.err != nil {
		return f.err
	}
	for i := 1; i <= f.frames; i++ {
		path := filepath.Join(req.OutputDir, fmt.Sprintf(req.Pattern, i))
		if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeDecoder struct {
	mu    sync.Mutex
	value byte
	fail  map[string]bool
	calls []string
}

func (f *fakeDecoder) DecodeGray(_ context.Context, path string, width, height int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(path)
	f.calls = append(f.calls, name)
	if f.fail[name] {
		return nil, errors.New("corrupt frame")
	}
	raw := make([]byte, width*height)
	for i := range raw {
		raw[i] = f.value
	}
	return raw, nil
}

type fakeRasterizer struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
	texts map[string]string
}

func (f *fakeRasterizer) Rasterize(_ context.Context, req magick.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(req.OutputPath)
	f.calls = append(f.calls, name)
	data, err := os.ReadFile(req.TextPath)
	if err != nil {
		return err
	}
	if f.texts == nil {
		f.texts = make(map[string]string)
	}
	f.texts[name] = string(data)
	if f.fail[name] {
		return errors.New("font missing")
	}
	return os.WriteFile(req.OutputPath, []byte("raster"), 0o644)
}

type fakeAudio struct {
	extractErr  error
	compressErr error
	extracted   int
	compressed  int
}

func (f *fakeAudio) ExtractAudio(_ context.Context, _, output string) error {
	f.extracted++
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(output, []byte("wav"), 0o644)
}

func (f *fakeAudio) CompressAudio(_ context.Context, _, output, _ string) error {
	f.compressed++
	if f.compressErr != nil {
		return f.compressErr
	}
	return os.WriteFile(output, []byte("wav"), 0o644)
}

type fakeAssembler struct {
	err    error
	frames []string
	first  string
	fps    int
	calls  int
}

func (f *fakeAssembler) Assemble(_ context.Context, frames []string, fps int, output string) error {
	f.calls++
	f.frames = append([]string(nil), frames...)
	f.fps = fps
	if len(frames) > 0 {
		data, err := os.ReadFile(frames[0])
		if err != nil {
			return err
		}
		f.first = string(data)
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("video"), 0o644)
}

type fakeMuxer struct {
	err       error
	muxAudio  string
	copied    bool
	muxCalled bool
}

func (f *fakeMuxer) Mux(_ context.Context, _, audio, _, output string) error {
	f.muxCalled = true
	f.muxAudio = audio
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("final"), 0o644)
}

func (f *fakeMuxer) CopyVideo(_ context.Context, _, output string) error {
	f.copied = true
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("final"), 0o644)
}

type fakes struct {
	prober     *fakeProber
	extractor  *fakeExtractor
	decoder    *fakeDecoder
	rasterizer *fakeRasterizer
	audio      *fakeAudio
	assembler  *fakeAssembler
	muxer      *fakeMuxer
}

func newFakes(frames int) *fakes {
	return &fakes{
		prober: &fakeProber{info: ffprobe.VideoInfo{
			Width: 320, Height: 240, FrameRate: "24/1", HasAudio: true, Duration: 1,
		}},
		extractor:  &fakeExtractor{frames: frames},
		decoder:    &fakeDecoder{value: 170},
		rasterizer: &fakeRasterizer{},
		audio:      &fakeAudio{},
		assembler:  &fakeAssembler{},
		muxer:      &fakeMuxer{},
	}
}

func (f *fakes) tools() Tools {
	return Tools{
		Prober:     f.prober,
		Extractor:  f.extractor,
		Decoder:    f.decoder,
		Rasterizer: f.rasterizer,
		Audio:      f.audio,
		Assembler:  f.assembler,
		Muxer:      f.muxer,
	}
}

type recordingObserver struct {
	started  []string
	finished []string
	progress map[string][]int
}

func (o *recordingObserver) StageStarted(stage string) { o.started = append(o.started, stage) }

func (o *recordingObserver) Progress(stage string, completed, _ int) {
	if o.progress == nil {
		o.progress = make(map[string][]int)
	}
	o.progress[stage] = append(o.progress[stage], completed)
}

func (o *recordingObserver) StageFinished(stage string, _ error) {
	o.finished = append(o.finished, stage)
}
