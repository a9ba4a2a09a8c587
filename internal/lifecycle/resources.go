package lifecycle

import (
	"log/slog"
	"sort"

	apperrors "github.com/Proton-105/usermgmt/internal/errors"
)

// Resource is an external connection or pool torn down by the mandatory
// final step of the shutdown sequence. *sql.DB and *redis.Client satisfy it.
type Resource interface {
	Close() error
}

// Disposer is implemented by resources that keep a pool which must be
// disposed of after the connection itself is closed.
type Disposer interface {
	Dispose() error
}

type namedResource struct {
	name     string
	resource Resource
}

// AddResource adds r to the set of core resources closed after every hook
// has run. A resource registered under an existing name replaces it.
func (c *Coordinator) AddResource(name string, r Resource) {
	if r == nil || name == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.resources[name] = r
}

// Resources returns the names of the registered core resources in the order
// they will be closed.
func (c *Coordinator) Resources() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.resourceSnapshotLocked()
	names := make([]string, 0, len(snapshot))
	for _, res := range snapshot {
		names = append(names, res.name)
	}

	return names
}

// resourceSnapshotLocked returns resources ordered by name. c.mu must be held.
func (c *Coordinator) resourceSnapshotLocked() []namedResource {
	out := make([]namedResource, 0, len(c.resources))
	for name, r := range c.resources {
		out = append(out, namedResource{name: name, resource: r})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].name < out[j].name
	})

	return out
}

// closeResources closes every resource and returns the number of failures.
func (c *Coordinator) closeResources(log *slog.Logger, resources []namedResource) int {
	log.Info("closing core resources", slog.Int("resource_count", len(resources)))

	failures := 0
	for _, res := range resources {
		resLog := log.With(slog.String("resource", res.name))

		if err := c.invoke(res.resource.Close); err != nil {
			failures++
			resourceClosesTotal.WithLabelValues(res.name, statusFailed).Inc()
			resLog.Error("failed to close resource", slog.Any("error", err))
			c.report(apperrors.NewResourceCloseError(res.name, err))
			continue
		}
		resLog.Info("closed resource")

		if d, ok := res.resource.(Disposer); ok {
			if err := c.invoke(d.Dispose); err != nil {
				failures++
				resourceClosesTotal.WithLabelValues(res.name, statusDisposeFailed).Inc()
				resLog.Error("failed to dispose resource pool", slog.Any("error", err))
				c.report(apperrors.NewResourceCloseError(res.name, err))
				continue
			}
			resLog.Info("disposed resource pool")
		}

		resourceClosesTotal.WithLabelValues(res.name, statusOK).Inc()
	}

	return failures
}
