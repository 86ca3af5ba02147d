package geo

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"time"

	"github.com/prodair/fieldinstall/internal/domain"
)

const watchCommand = `?WATCH={"enable":true,"json":true};` + "\n"

// GPSD reads one fix from a gpsd daemon over its JSON socket protocol.
type GPSD struct {
	addr   string
	logger *slog.Logger
	now    func() time.Time
}

func NewGPSD(addr string, logger *slog.Logger) *GPSD {
	return &GPSD{addr: addr, logger: logger, now: time.Now}
}

type gpsdReport struct {
	Class   string          `json:"class"`
	Mode    int             `json:"mode"`
	Lat     *float64        `json:"lat"`
	Lon     *float64        `json:"lon"`
	Epx     *float64        `json:"epx"`
	Epy     *float64        `json:"epy"`
	Devices json.RawMessage `json:"devices"`
}

// Locate waits for the first TPV report carrying a usable fix. A 2D fix is
// enough unless HighAccuracy asks for 3D.
func (g *GPSD) Locate(ctx context.Context, opts Options) (domain.Location, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Location{}, &Error{Kind: Timeout, Err: err}
		}
		return domain.Location{}, &Error{Kind: Unsupported, Err: fmt.Errorf("failed to connect to gpsd: %w", err)}
	}
	defer func() {
		if err := conn.Close(); err != nil {
			g.logger.Debug("failed to close gpsd connection", "error", err)
		}
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return domain.Location{}, g.readError(ctx, err)
	}

	minMode := 2
	if opts.HighAccuracy {
		minMode = 3
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var rep gpsdReport
		if err := json.Unmarshal(scanner.Bytes(), &rep); err != nil {
			g.logger.Debug("skipping unparsable gpsd line", "error", err)
			continue
		}

		switch rep.Class {
		case "DEVICES":
			var devices []json.RawMessage
			if err := json.Unmarshal(rep.Devices, &devices); err == nil && len(devices) == 0 {
				return domain.Location{}, &Error{Kind: PositionUnavailable, Err: errors.New("gpsd has no receiver attached")}
			}
		case "TPV":
			if rep.Mode < minMode || rep.Lat == nil || rep.Lon == nil {
				continue
			}
			loc := domain.Location{
				Latitude:  *rep.Lat,
				Longitude: *rep.Lon,
				Timestamp: g.now().UnixMilli(),
			}
			if acc, ok := horizontalError(rep); ok {
				loc.Accuracy = &acc
			}
			return loc, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return domain.Location{}, g.readError(ctx, err)
	}
	return domain.Location{}, &Error{Kind: PositionUnavailable, Err: errors.New("gpsd closed the connection")}
}

func (g *GPSD) readError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Kind: PositionUnavailable, Err: ctx.Err()}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &Error{Kind: Timeout, Err: err}
	}
	return &Error{Kind: PositionUnavailable, Err: err}
}

func horizontalError(rep gpsdReport) (float64, bool) {
	switch {
	case rep.Epx != nil && rep.Epy != nil:
		return math.Max(*rep.Epx, *rep.Epy), true
	case rep.Epx != nil:
		return *rep.Epx, true
	case rep.Epy != nil:
		return *rep.Epy, true
	default:
		return 0, false
	}
}
