package display

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Default control pins on a Raspberry Pi: SPI0 with data/command on
// GPIO24 and reset on GPIO25.
const (
	ssd1322SPIPort  = "SPI0.0"
	ssd1322DCPin    = "GPIO24"
	ssd1322ResetPin = "GPIO25"

	// The SSD1322 RAM is 480 columns wide; a 256px panel is centered,
	// so column addressing starts at 0x1C (28 * 4-pixel groups / 2).
	ssd1322ColOffset = 0x1C

	// Kernel SPI transfers are capped at one page on the Pi.
	spiChunkSize = 4096
)

// SSD1322 drives a 4-bit grayscale OLED panel over SPI. Frames are
// converted from RGBA to packed 4bpp luminance before transfer.
type SSD1322 struct {
	port   spi.PortCloser
	conn   spi.Conn
	dc     gpio.PinOut
	rst    gpio.PinOut
	width  int
	height int
	fps    int
	logger *log.Logger
	buf    []byte
}

// NewSSD1322 opens the SPI port, resets the panel, and runs the init
// command sequence.
func NewSSD1322(width, height, fps int, logger *log.Logger) (*SSD1322, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	port, err := spireg.Open(ssd1322SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ssd1322SPIPort, err)
	}
	conn, err := port.Connect(10*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect %s: %w", ssd1322SPIPort, err)
	}
	dc := gpioreg.ByName(ssd1322DCPin)
	rst := gpioreg.ByName(ssd1322ResetPin)
	if dc == nil || rst == nil {
		port.Close()
		return nil, fmt.Errorf("gpio pins %s/%s not found", ssd1322DCPin, ssd1322ResetPin)
	}

	d := &SSD1322{
		port:   port,
		conn:   conn,
		dc:     dc,
		rst:    rst,
		width:  width,
		height: height,
		fps:    fps,
		logger: logger,
		buf:    make([]byte, width*height/2),
	}
	if err := d.reset(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset panel: %w", err)
	}
	if err := d.initPanel(); err != nil {
		port.Close()
		return nil, fmt.Errorf("init panel: %w", err)
	}
	logger.Printf("ssd1322 display started | size: %dx%d | fps: %d", width, height, fps)
	return d, nil
}

func (d *SSD1322) Run(ctx context.Context, next FrameFunc) error {
	ticker := time.NewTicker(time.Second / time.Duration(d.fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			frame := next(now)
			if frame == nil {
				continue
			}
			if err := d.draw(frame); err != nil {
				return fmt.Errorf("draw frame: %w", err)
			}
		}
	}
}

func (d *SSD1322) Close() error {
	// Blank and switch off before releasing the bus.
	if err := d.command(0xAE); err != nil {
		d.port.Close()
		return err
	}
	d.logger.Println("ssd1322 display stopped")
	return d.port.Close()
}

func (d *SSD1322) reset() error {
	if err := d.rst.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	if err := d.rst.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

// initPanel runs the SSD1322 power-up sequence for a 256x64 module.
func (d *SSD1322) initPanel() error {
	seq := []struct {
		cmd  byte
		args []byte
	}{
		{0xFD, []byte{0x12}},       // unlock commands
		{0xAE, nil},                // display off
		{0xB3, []byte{0x91}},       // clock divider / oscillator
		{0xCA, []byte{0x3F}},       // mux ratio 1/64
		{0xA2, []byte{0x00}},       // display offset
		{0xA1, []byte{0x00}},       // start line
		{0xA0, []byte{0x14, 0x11}}, // remap: horizontal, nibble swap, dual COM
		{0xB5, []byte{0x00}},       // GPIO disabled
		{0xAB, []byte{0x01}},       // internal VDD regulator
		{0xB4, []byte{0xA0, 0xFD}}, // display enhancement A
		{0xC1, []byte{0x9F}},       // contrast current
		{0xC7, []byte{0x0F}},       // master contrast
		{0xB9, nil},                // linear grayscale table
		{0xB1, []byte{0xE2}},       // phase length
		{0xD1, []byte{0x82, 0x20}}, // display enhancement B
		{0xBB, []byte{0x1F}},       // precharge voltage
		{0xB6, []byte{0x08}},       // second precharge period
		{0xBE, []byte{0x07}},       // VCOMH voltage
		{0xA6, nil},                // normal display mode
		{0xA9, nil},                // exit partial display
		{0xAF, nil},                // display on
	}
	for _, step := range seq {
		if err := d.command(step.cmd, step.args...); err != nil {
			return err
		}
	}
	return nil
}

func (d *SSD1322) command(cmd byte, args ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	return d.data(args)
}

func (d *SSD1322) data(p []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(p) > 0 {
		n := min(len(p), spiChunkSize)
		if err := d.conn.Tx(p[:n], nil); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// draw packs the frame into 4bpp luminance and transfers it. Two
// horizontally adjacent pixels share one byte, high nibble first.
func (d *SSD1322) draw(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != d.width || b.Dy() != d.height {
		return fmt.Errorf("frame size %dx%d does not match panel %dx%d", b.Dx(), b.Dy(), d.width, d.height)
	}

	i := 0
	for y := 0; y < d.height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < d.width; x += 2 {
			left := luma4(row[x*4], row[x*4+1], row[x*4+2])
			right := luma4(row[(x+1)*4], row[(x+1)*4+1], row[(x+1)*4+2])
			d.buf[i] = left<<4 | right
			i++
		}
	}

	cols := d.width / 4
	if err := d.command(0x15, ssd1322ColOffset, ssd1322ColOffset+byte(cols)-1); err != nil {
		return err
	}
	if err := d.command(0x75, 0x00, byte(d.height)-1); err != nil {
		return err
	}
	if err := d.command(0x5C); err != nil {
		return err
	}
	return d.data(d.buf)
}

// luma4 reduces an RGB pixel to a 4-bit gray level using the Rec. 601
// weights.
func luma4(r, g, b byte) byte {
	return byte((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b)) >> 16 >> 4)
}
