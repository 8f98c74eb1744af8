package synth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/mgpai22/dubline/internal/logging"
)

// ClipCache stores synthesized audio by key. Get reports ok=false for a miss.
type ClipCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// CachingSynthesizer serves repeated requests from a ClipCache. Cache
// failures are logged and fall through to the wrapped synthesizer.
type CachingSynthesizer struct {
	inner     Synthesizer
	cache     ClipCache
	namespace string
	logger    *logging.Logger
}

// namespace separates providers and models that would otherwise share keys
func NewCachingSynthesizer(
	inner Synthesizer,
	cache ClipCache,
	namespace string,
	logger *logging.Logger,
) *CachingSynthesizer {
	return &CachingSynthesizer{
		inner:     inner,
		cache:     cache,
		namespace: namespace,
		logger:    logging.OrNop(logger),
	}
}

// CacheKey is the sha256 of everything that changes the synthesized audio.
func CacheKey(namespace, text string, opts Options) string {
	h := sha256.New()
	for _, part := range []string{
		namespace,
		opts.Model,
		opts.Voice,
		opts.Language,
		strconv.FormatFloat(opts.Speed, 'f', -1, 64),
		text,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachingSynthesizer) Synthesize(
	ctx context.Context,
	text string,
	opts Options,
) (*Result, error) {
	key := CacheKey(c.namespace, text, opts)

	data, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warnw("Clip cache lookup failed", "key", key, "error", err)
	case ok:
		if res, decodeErr := decodeEntry(data); decodeErr == nil {
			c.logger.Debugw("Clip cache hit", "key", key)
			return res, nil
		}
		c.logger.Warnw("Discarding corrupt clip cache entry", "key", key)
	}

	res, err := c.inner.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(ctx, key, encodeEntry(res)); err != nil {
		c.logger.Warnw("Clip cache store failed", "key", key, "error", err)
	}
	return res, nil
}

func (c *CachingSynthesizer) Close() error {
	return c.inner.Close()
}

// entries are "<content type>\n<audio>"
func encodeEntry(res *Result) []byte {
	out := make([]byte, 0, len(res.ContentType)+1+len(res.Audio))
	out = append(out, res.ContentType...)
	out = append(out, '\n')
	return append(out, res.Audio...)
}

func decodeEntry(data []byte) (*Result, error) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 || i == len(data)-1 {
		return nil, fmt.Errorf("malformed cache entry")
	}
	return &Result{
		ContentType: string(data[:i]),
		Audio:       data[i+1:],
	}, nil
}
