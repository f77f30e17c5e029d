package ovsv

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// ProfileKey identifies a designed bandpass profile.
type ProfileKey struct {
	Low, High  float64
	SampleRate float64
	Taps       int
	FFTLen     int
}

// ProfileCache remembers recently designed profiles so a passband that is
// revisited does not pay for the design and transform again.
type ProfileCache struct {
	cache *lru.Cache[ProfileKey, []complex128]
}

func NewProfileCache(size int) (*ProfileCache, error) {
	c, err := lru.New[ProfileKey, []complex128](size)
	if err != nil {
		return nil, err
	}
	return &ProfileCache{cache: c}, nil
}

// Get returns the cached profile for key, building it with design on a miss.
func (p *ProfileCache) Get(key ProfileKey, design func() ([]complex64, error)) ([]complex128, error) {
	if prof, ok := p.cache.Get(key); ok {
		return prof, nil
	}
	coefs, err := design()
	if err != nil {
		return nil, err
	}
	prof, err := BuildProfile(coefs, key.FFTLen)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, prof)
	return prof, nil
}

func (p *ProfileCache) Len() int { return p.cache.Len() }
