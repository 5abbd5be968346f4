// Package audioconv decodes wav, mp3, ogg/vorbis and ogg/opus files to mono
// float32 PCM at a target sample rate.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

var ErrUnsupported = errors.New("unsupported audio format")

// Options shape the decoded output.
type Options struct {
	// SampleRate of the output. Zero means 16000.
	SampleRate int
	// MaxSamples truncates the output when positive.
	MaxSamples int
}

func (o Options) rate() int {
	if o.SampleRate <= 0 {
		return 16000
	}
	return o.SampleRate
}

// pcm is decoded audio before the common mono/resample/truncate pass.
type pcm struct {
	samples  []float32
	channels int
	rate     int
}

type decoder func(r io.ReadSeeker) (pcm, error)

var byExt = map[string][]decoder{
	".wav":  {decodeWAV},
	".mp3":  {decodeMP3},
	".ogg":  {decodeVorbis, decodeOpus},
	".oga":  {decodeVorbis, decodeOpus},
	".opus": {decodeOpus},
}

var byMagic = map[string][]decoder{
	"RIFF":    {decodeWAV},
	"OggS":    {decodeVorbis, decodeOpus},
	"ID3\x03": {decodeMP3},
	"ID3\x04": {decodeMP3},
}

// DecodeFile picks decoders by extension, or by magic bytes when the
// extension is unknown.
func DecodeFile(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decs, ok := byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		magic, _ := bufio.NewReader(f).Peek(4)
		if decs, ok = byMagic[string(magic)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
		}
	}
	return decodeWith(f, decs, opt)
}

// Decode reads a whole stream of a known format ("wav", "mp3", "ogg").
func Decode(r io.Reader, format string, opt Options) ([]float32, error) {
	decs, ok := byExt["."+strings.TrimPrefix(strings.ToLower(format), ".")]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		rs = bytes.NewReader(b)
	}
	return decodeWith(rs, decs, opt)
}

func decodeWith(rs io.ReadSeeker, decs []decoder, opt Options) ([]float32, error) {
	var errs []error
	for _, dec := range decs {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		p, err := dec(rs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return finish(p, opt), nil
	}
	return nil, errors.Join(append([]error{ErrUnsupported}, errs...)...)
}

func finish(p pcm, opt Options) []float32 {
	x := downmix(p.samples, p.channels)
	x = resampleLinear(x, p.rate, opt.rate())
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, fmt.Errorf("read wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return pcm{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	p := pcm{samples: intsToFloat(buf.Data, depth), channels: 1, rate: 44100}
	if buf.Format != nil {
		p.channels = max(buf.Format.NumChannels, 1)
		if buf.Format.SampleRate > 0 {
			p.rate = buf.Format.SampleRate
		}
	}
	return p, nil
}

func decodeMP3(r io.ReadSeeker) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, fmt.Errorf("open mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, fmt.Errorf("read mp3: %w", err)
	}
	ints := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &ints); err != nil {
		return pcm{}, err
	}
	// go-mp3 always yields interleaved stereo.
	return pcm{samples: int16sToFloat(ints), channels: 2, rate: max(dec.SampleRate(), 1)}, nil
}

func decodeVorbis(r io.ReadSeeker) (pcm, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, fmt.Errorf("read vorbis: %w", err)
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return pcm{}, errors.New("invalid ogg/vorbis stream")
	}
	return pcm{samples: data, channels: format.Channels, rate: format.SampleRate}, nil
}

func decodeOpus(r io.ReadSeeker) (pcm, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return pcm{}, fmt.Errorf("open opus: %w", err)
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)
	var out []float32
	buf := make([]int16, 24_000*ch)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			out = append(out, int16sToFloat(buf[:n*ch])...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return pcm{}, fmt.Errorf("read opus: %w", err)
		}
	}
	if len(out) == 0 {
		return pcm{}, errors.New("empty opus stream")
	}
	return pcm{samples: out, channels: ch, rate: 48000}, nil
}

func intsToFloat(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(min(max(float64(v)*scale, -1), 1))
	}
	return out
}

func int16sToFloat(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(in[i*channels+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate || len(in) == 0 {
		return in
	}
	ratio := float64(outRate) / float64(inRate)
	n := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, n)
	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}
