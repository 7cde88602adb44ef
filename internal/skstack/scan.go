package skstack

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/allbin/broute/internal/logging"
)

const maxScanDuration = 14

// PAN describes a coordinator found by an active scan
type PAN struct {
	Channel     string
	ChannelPage string
	PanID       string
	Addr        string
	LQI         int
	PairID      string
}

// scanTimeout estimates how long SKSCAN runs for a duration exponent over all
// 28 channels, plus slack for the radio.
func scanTimeout(duration int) time.Duration {
	perChannel := time.Duration(math.Pow(2, float64(duration))+1) * 9600 * time.Microsecond
	return perChannel*28 + 10*time.Second
}

// Scan runs active scans with growing duration until a PAN answers. The PAN
// with the best link quality is returned.
func (c *Client) Scan(ctx context.Context) (*PAN, error) {
	duration := c.opts.ScanDuration
	for attempt := 1; attempt <= c.opts.ScanRetries; attempt++ {
		logging.Debugf("skstack: active scan %d/%d, duration %d", attempt, c.opts.ScanRetries, duration)
		pans, err := c.scanOnce(ctx, duration)
		if err != nil {
			return nil, err
		}
		if best := bestPAN(pans); best != nil {
			logging.Infof("skstack: found PAN %s on channel %s (LQI %d)", best.PanID, best.Channel, best.LQI)
			return best, nil
		}
		if duration < maxScanDuration {
			duration++
		}
	}
	return nil, ErrScanFailure
}

func (c *Client) scanOnce(ctx context.Context, duration int) ([]PAN, error) {
	if _, err := c.Command(ctx, fmt.Sprintf("SKSCAN 2 FFFFFFFF %X 0", duration)); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, scanTimeout(duration))
	defer cancel()

	var (
		pans []PAN
		cur  *PAN
	)
	for {
		line, err := c.readLine(sctx)
		if err != nil {
			return nil, timeoutErr(ctx, "SKSCAN", err)
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "EVENT "):
			ev, err := parseEvent(trimmed)
			if err != nil {
				continue
			}
			if ev.Code == EventScanDone {
				if cur != nil {
					pans = append(pans, *cur)
				}
				return pans, nil
			}
		case trimmed == "EPANDESC":
			if cur != nil {
				pans = append(pans, *cur)
			}
			cur = &PAN{}
		case cur != nil:
			key, value, ok := strings.Cut(trimmed, ":")
			if !ok {
				continue
			}
			applyPANField(cur, key, value)
		}
	}
}

func applyPANField(p *PAN, key, value string) {
	switch key {
	case "Channel":
		p.Channel = value
	case "Channel Page":
		p.ChannelPage = value
	case "Pan ID":
		p.PanID = value
	case "Addr":
		p.Addr = value
	case "LQI":
		if n, err := strconv.ParseUint(value, 16, 8); err == nil {
			p.LQI = int(n)
		}
	case "PairID":
		p.PairID = value
	}
}

// bestPAN picks the complete descriptor with the highest LQI
func bestPAN(pans []PAN) *PAN {
	var best *PAN
	for i := range pans {
		p := &pans[i]
		if p.Channel == "" || p.PanID == "" || p.Addr == "" {
			continue
		}
		if best == nil || p.LQI > best.LQI {
			best = p
		}
	}
	return best
}
