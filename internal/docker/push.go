// internal/docker/push.go
//
// Registry login for builds that push. buildx pushes the image itself; this
// only makes sure the daemon holds credentials first.

package docker

import (
	"context"
	"errors"
	"strings"

	"facsimilab/internal/executil"
)

// Configured reports whether credentials were supplied at all.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.User) != "" || strings.TrimSpace(c.Password) != ""
}

// Login runs `docker login --password-stdin`. The password never appears on
// the command line, so dry-run output is safe to print.
func Login(ctx context.Context, r executil.Runner, creds Credentials) error {
	if strings.TrimSpace(creds.User) == "" {
		return errors.New("docker login: registry user is empty")
	}
	if creds.Password == "" {
		return errors.New("docker login: registry password is empty")
	}

	args := []string{"login", "-u", creds.User, "--password-stdin"}
	if s := strings.TrimSpace(creds.Server); s != "" {
		args = append(args, s)
	}
	c := executil.Command("docker", args...)
	c.Stdin = strings.NewReader(creds.Password)
	return r.Run(ctx, c)
}
