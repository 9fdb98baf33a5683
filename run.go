package main

import (
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"os"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/image/bmp"
	"golang.org/x/sync/errgroup"

	"holly/gfx"
	"holly/hw"
)

func setup(cli CLI) (*hw.Device, *gfx.Driver, gfx.Config, error) {
	cfg := gfx.LoadConfigOrDefault(cli.Config)
	dev := hw.NewDevice()
	drv := gfx.New(dev, hw.NewNotifier(dev), cfg.Board)
	cfg.Apply(drv)
	if err := drv.Init(cfg.Video.Depth); err != nil {
		return nil, nil, cfg, err
	}
	return dev, drv, cfg, nil
}

// scanlinePeriod approximates the 31 kHz line rate, to pace the beam
// goroutine without burning a core.
const scanlinePeriod = 32 * time.Microsecond

func runDemo(cli CLI) error {
	dev, drv, _, err := setup(cli)
	if err != nil {
		return err
	}
	defer drv.Free()

	drv.SetBackgroundColor(gfx.Color{R: 0, G: 0, B: 0})
	drv.SetBackgroundPlane(gfx.Color{R: 16, G: 24, B: 48})

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	// The beam. Present parks on the vblank it generates.
	g.Go(func() error {
		tick := time.NewTicker(scanlinePeriod)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
				dev.StepLine()
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		for frame := 0; frame < cli.Demo.Frames; frame++ {
			drv.CommitBegin()
			commitTriangle(drv, frame)
			drv.CommitEnd()
			drv.Render()
			drv.Present()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if cli.Demo.Out != "" {
		return writeBMP(cli.Demo.Out, drv)
	}
	return nil
}

// commitTriangle streams one opaque triangle: a global parameter
// record followed by three vertex records.
func commitTriangle(drv *gfx.Driver, frame int) {
	var rec [gfx.ListShort]byte

	binary.LittleEndian.PutUint32(rec[:], 0x80000000) // opaque polygon header
	drv.CommitList(rec[:])

	w := float32(drv.Width())
	h := float32(drv.Height())
	phase := float32(frame) * 0.05
	verts := [3][2]float32{
		{w / 2, h/2 - 100},
		{w/2 + 100*cosf(phase), h/2 + 100},
		{w/2 - 100*cosf(phase), h/2 + 100},
	}
	for i, v := range verts {
		clear(rec[:])
		cmd := uint32(0xE0000000) // vertex parameter
		if i == len(verts)-1 {
			cmd |= 1 << 28 // end of strip
		}
		binary.LittleEndian.PutUint32(rec[0:], cmd)
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(rec[12:], math.Float32bits(0.5))
		binary.LittleEndian.PutUint32(rec[24:], 0x00FF4000) // base color
		drv.CommitList(rec[:])
	}
}

func cosf(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

func writeBMP(path string, drv *gfx.Driver) error {
	img := image.NewNRGBA(image.Rect(0, 0, drv.Width(), drv.Height()))
	for y := 0; y < drv.Height(); y++ {
		for x := 0; x < drv.Width(); x++ {
			c := drv.Pixel(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return bmp.Encode(f, img)
}

func runInfo(cli CLI) error {
	_, drv, cfg, err := setup(cli)
	if err != nil {
		return err
	}
	defer drv.Free()

	mode := drv.Mode()
	layout := drv.VRAMLayout()

	var e jx.Encoder
	e.SetIdent(2)
	e.ObjStart()

	e.FieldStart("depth")
	e.Int(cfg.Video.Depth)
	e.FieldStart("width")
	e.Int(drv.Width())
	e.FieldStart("height")
	e.Int(drv.Height())
	e.FieldStart("vertical")
	e.Bool(drv.IsVertical())
	e.FieldStart("interlaced")
	e.Bool(drv.IsInterlaced())

	e.FieldStart("mode")
	e.ObjStart()
	e.FieldStart("hsync")
	e.UInt32(mode.HSync)
	e.FieldStart("vsync")
	e.UInt32(mode.VSync)
	e.FieldStart("h_pos")
	e.UInt32(mode.HPos)
	e.FieldStart("v_pos")
	e.UInt32(mode.VPos)
	e.FieldStart("vblank_int_start")
	e.UInt32(mode.VBlankIntStart)
	e.FieldStart("vblank_int_end")
	e.UInt32(mode.VBlankIntEnd)
	e.ObjEnd()

	e.FieldStart("layout")
	e.ObjStart()
	e.FieldStart("framebuffer0")
	e.UInt32(layout.Framebuffer0)
	e.FieldStart("framebuffer1")
	e.UInt32(layout.Framebuffer1)
	e.FieldStart("scratch")
	e.UInt32(layout.Scratch)
	e.FieldStart("cmd_list")
	e.UInt32(layout.CmdList)
	e.FieldStart("background_list")
	e.UInt32(layout.BackgroundList)
	e.FieldStart("overflow")
	e.UInt32(layout.Overflow)
	e.FieldStart("opaque_buf")
	e.UInt32(layout.OpaqueBuf)
	e.FieldStart("transparent_buf")
	e.UInt32(layout.TransparentBuf)
	e.FieldStart("punchthru_buf")
	e.UInt32(layout.PunchThruBuf)
	e.FieldStart("tile_descriptors")
	e.UInt32(layout.TileDescriptors)
	e.FieldStart("texture_ram")
	e.UInt32(layout.TextureRAM)
	e.ObjEnd()

	e.ObjEnd()

	_, err = os.Stdout.Write(append(e.Bytes(), '\n'))
	return err
}
