package form

import (
	"errors"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/stream"
)

// urlencoded field/value '&'-separated, '='-separated, single-pass byte
// scanner per spec section 4.10: state in {name, value} x {none, percent1,
// percent2}. Accepts both a URI query string and a POST body with the same
// state machine.

type ueFieldState int

const (
	ueName ueFieldState = iota
	ueValue
)

type uePctState int

const (
	uePctNone uePctState = iota
	uePct1
	uePct2
)

// ParseURLEncoded reads src to completion and decodes it as
// application/x-www-form-urlencoded, enforcing limits as it goes so a
// hostile body cannot force unbounded buffering before a limit trips.
func ParseURLEncoded(src stream.ByteSource, limits Limits) (*Data, error) {
	p := &urlDecoder{limits: limits, data: NewData(), decode: httptype.CharsetDecoder(limits.Charset)}
	for {
		buf, err := src.Read().Wait()
		if err != nil {
			if errors.Is(err, async.End) {
				if perr := p.finishPair(); perr != nil {
					return nil, perr
				}
				return p.data, nil
			}
			return nil, err
		}
		if perr := p.feed(buf.Bytes()); perr != nil {
			return nil, perr
		}
	}
}

// ParseURLEncodedBytes is a convenience wrapper for query strings already
// held in memory (no streaming source involved).
func ParseURLEncodedBytes(raw []byte, limits Limits) (*Data, error) {
	return ParseURLEncoded(stream.NewSimpleByteSource(raw), limits)
}

type urlDecoder struct {
	limits Limits
	data   *Data
	decode func([]byte) (string, error)

	fieldState ueFieldState
	pctState   uePctState
	pctHi      byte

	name       []byte
	value      []byte
	haveName   bool // true once any byte of the current pair has been seen
	valueTotal int64
	entries    int
}

func (p *urlDecoder) feed(chunk []byte) error {
	for _, b := range chunk {
		if err := p.feedByte(b); err != nil {
			return err
		}
	}
	return nil
}

func (p *urlDecoder) feedByte(b byte) error {
	if b != '&' {
		p.haveName = true
	}
	switch p.pctState {
	case uePct1:
		hi, ok := hexDigit(b)
		if !ok {
			return rawerrors.NewProtocolError("url-decode", "malformed percent-escape", nil)
		}
		p.pctHi = hi
		p.pctState = uePct2
		return nil
	case uePct2:
		lo, ok := hexDigit(b)
		if !ok {
			return rawerrors.NewProtocolError("url-decode", "malformed percent-escape", nil)
		}
		p.pctState = uePctNone
		return p.appendDecoded(p.pctHi<<4 | lo)
	}

	switch b {
	case '&':
		return p.finishPair()
	case '=':
		if p.fieldState == ueName {
			p.fieldState = ueValue
			return nil
		}
		return p.appendDecoded('=')
	case '+':
		return p.appendDecoded(' ')
	case '%':
		p.pctState = uePct1
		return nil
	default:
		return p.appendDecoded(b)
	}
}

func (p *urlDecoder) appendDecoded(b byte) error {
	if p.fieldState == ueName {
		if p.limits.MaxEntryKeyBytes > 0 && int64(len(p.name)+1) > p.limits.MaxEntryKeyBytes {
			return rawerrors.NewOverLimitError("url-decode", "maxEntryKeyBytes", p.limits.MaxEntryKeyBytes)
		}
		p.name = append(p.name, b)
		return nil
	}
	p.valueTotal++
	if p.limits.MaxParamValueTotalBytes > 0 && p.valueTotal > p.limits.MaxParamValueTotalBytes {
		return rawerrors.NewOverLimitError("url-decode", "maxParamValueTotalBytes", p.limits.MaxParamValueTotalBytes)
	}
	p.value = append(p.value, b)
	return nil
}

func (p *urlDecoder) finishPair() error {
	if !p.haveName && len(p.name) == 0 && len(p.value) == 0 {
		return nil // trailing/empty "&&" produces no pair
	}
	if p.pctState != uePctNone {
		return rawerrors.NewProtocolError("url-decode", "truncated percent-escape", nil)
	}
	p.entries++
	if p.limits.MaxParamEntries > 0 && p.entries > p.limits.MaxParamEntries {
		return rawerrors.NewOverLimitError("url-decode", "maxParamEntries", int64(p.limits.MaxParamEntries))
	}
	name, err := p.decode(p.name)
	if err != nil {
		return rawerrors.NewValidationError("url-decode", "invalid charset bytes in name")
	}
	value, err := p.decode(p.value)
	if err != nil {
		return rawerrors.NewValidationError("url-decode", "invalid charset bytes in value")
	}
	p.data.addParam(name, value)
	p.name = nil
	p.value = nil
	p.fieldState = ueName
	p.haveName = false
	return nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
