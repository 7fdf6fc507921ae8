package envfile

import "github.com/pkg/errors"

// BuildEnv is the typed view of the metadata a run exposes to the build
// engine. Its methods are the only place it turns into pairs.
type BuildEnv struct {
	ISODatetime     string
	ImageVersion    string
	BaseImageName   string
	ImageRepoPrefix string
	BaseImageSHA    string
	MainEnvSHA      string
	FullEnvSHA      string
	BaseSHA         string
	MainSHA         string
	FullSHA         string
}

// BaseImageExact is the upstream base image pinned by digest.
func (e BuildEnv) BaseImageExact() string {
	if e.BaseImageSHA == "" {
		return e.BaseImageName
	}
	return e.BaseImageName + "@" + e.BaseImageSHA
}

// HeaderPairs are written as soon as the version is known.
func (e BuildEnv) HeaderPairs() []Pair {
	return []Pair{
		{KeyISODatetime, e.ISODatetime},
		{KeyImageVersion, e.ImageVersion},
		{KeyBaseImageName, e.BaseImageName},
		{KeyImageRepoPrefix, e.ImageRepoPrefix},
	}
}

// UpstreamPairs pin the vendor base image.
func (e BuildEnv) UpstreamPairs() []Pair {
	return []Pair{
		{KeyBaseImageSHA, e.BaseImageSHA},
		{KeyBaseImageExact, e.BaseImageExact()},
	}
}

// SetDigest records the digest of the image published under key and
// returns the pair to write.
func (e *BuildEnv) SetDigest(key, digest string) (Pair, error) {
	switch key {
	case KeyBaseSHA:
		e.BaseSHA = digest
	case KeyMainEnvSHA:
		e.MainEnvSHA = digest
	case KeyMainSHA:
		e.MainSHA = digest
	case KeyFullEnvSHA:
		e.FullEnvSHA = digest
	case KeyFullSHA:
		e.FullSHA = digest
	default:
		return Pair{}, errors.Errorf("%s is not an image digest key", key)
	}
	return Pair{Key: key, Value: digest}, nil
}
