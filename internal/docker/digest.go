package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
)

// DryRunDigest is returned for every inspection in dry-run mode.
const DryRunDigest = "sha256:dry-run"

type distributionClient interface {
	DistributionInspect(ctx context.Context, imageRef, encodedRegistryAuth string) (registry.DistributionInspect, error)
}

// Inspector resolves the registry content digest of an image reference.
type Inspector struct {
	api    distributionClient
	auth   string
	dryRun bool
}

// NewInspector connects to the daemon from the environment (DOCKER_HOST etc.).
// In dry-run mode no client is created.
func NewInspector(creds Credentials, dryRun bool) (*Inspector, error) {
	if dryRun {
		return &Inspector{dryRun: true}, nil
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	auth := ""
	if creds.Configured() {
		auth, err = registry.EncodeAuthConfig(registry.AuthConfig{
			Username:      creds.User,
			Password:      creds.Password,
			ServerAddress: creds.Server,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode registry auth: %w", err)
		}
	}
	return &Inspector{api: cli, auth: auth}, nil
}

// Digest returns the manifest digest (sha256:...) that ref currently points at.
func (i *Inspector) Digest(ctx context.Context, ref string) (string, error) {
	if i.dryRun {
		return DryRunDigest, nil
	}
	info, err := i.api.DistributionInspect(ctx, ref, i.auth)
	if err != nil {
		return "", fmt.Errorf("inspect %s: %w", ref, err)
	}
	d := strings.TrimSpace(info.Descriptor.Digest.String())
	if d == "" {
		return "", fmt.Errorf("inspect %s: registry returned no digest", ref)
	}
	return d, nil
}
