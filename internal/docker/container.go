package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// RunSpec describes one ephemeral container.
type RunSpec struct {
	Image  string
	Cmd    []string
	GPUs   bool
	Mounts [][2]string // host path, container path (read-only binds)
}

// ContainerRunner pulls images and runs one-shot containers via the daemon API.
type ContainerRunner struct {
	client *client.Client
}

// NewContainerRunner connects to the daemon from the environment.
func NewContainerRunner() (*ContainerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &ContainerRunner{client: cli}, nil
}

// Pull pulls ref and drains the progress stream.
func (r *ContainerRunner) Pull(ctx context.Context, ref string) error {
	reader, err := r.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to read pull output: %w", err)
	}
	return nil
}

// Run creates, starts and waits for a container, copying its combined output
// to out. The container is removed afterwards. It returns the exit code.
func (r *ContainerRunner) Run(ctx context.Context, spec RunSpec, out io.Writer) (int, error) {
	host := &container.HostConfig{}
	for _, m := range spec.Mounts {
		host.Mounts = append(host.Mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m[0],
			Target:   m[1],
			ReadOnly: true,
		})
	}
	if spec.GPUs {
		host.Resources.DeviceRequests = []container.DeviceRequest{{
			Count:        -1,
			Capabilities: [][]string{{"gpu"}},
		}}
	}

	created, err := r.client.ContainerCreate(ctx, &container.Config{
		Image: spec.Image,
		Cmd:   spec.Cmd,
	}, host, nil, nil, "")
	if err != nil {
		return -1, fmt.Errorf("failed to create container from %s: %w", spec.Image, err)
	}
	defer func() {
		_ = r.client.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true})
	}()

	if err := r.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return -1, fmt.Errorf("failed to start container: %w", err)
	}

	statusCh, errCh := r.client.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	var code int64
	select {
	case err := <-errCh:
		if err != nil {
			return -1, fmt.Errorf("failed waiting for container: %w", err)
		}
	case st := <-statusCh:
		if st.Error != nil {
			return -1, fmt.Errorf("container wait error: %s", st.Error.Message)
		}
		code = st.StatusCode
	}

	logs, err := r.client.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return int(code), fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()
	if _, err := stdcopy.StdCopy(out, out, logs); err != nil {
		return int(code), fmt.Errorf("failed to copy container logs: %w", err)
	}
	return int(code), nil
}
