package dockerengine

import (
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"

	"github.com/xrayctl/enginegate/internal/core"
)

// toSummary maps one Docker list row to a ContainerSummary.
func toSummary(ct types.Container) core.ContainerSummary {
	name := ""
	if len(ct.Names) > 0 {
		name = strings.TrimPrefix(ct.Names[0], "/")
	}
	return core.ContainerSummary{
		ID:        ct.ID,
		Name:      name,
		Image:     ct.Image,
		State:     ct.State,
		Status:    ct.Status,
		CreatedAt: time.Unix(ct.Created, 0),
	}
}

// toDetail maps a Docker inspect response to a ContainerDetail.
func toDetail(resp types.ContainerJSON) core.ContainerDetail {
	d := core.ContainerDetail{
		ID:   resp.ID,
		Name: strings.TrimPrefix(resp.Name, "/"),
	}
	if resp.Config != nil {
		d.Image = resp.Config.Image
	}
	if resp.State != nil {
		d.Status = resp.State.Status
		d.Running = resp.State.Running
		d.ExitCode = resp.State.ExitCode
		if resp.State.Health != nil {
			d.Health = resp.State.Health.Status
		}
		// The engine reports a zero StartedAt ("0001-01-01T00:00:00Z") for
		// never-started containers; a parse failure leaves the zero time.
		if t, err := time.Parse(time.RFC3339Nano, resp.State.StartedAt); err == nil {
			d.StartedAt = t
		}
	}
	return d
}

// toStats maps a raw one-shot stats sample to a ContainerStats snapshot.
func toStats(id string, raw container.StatsResponse) core.ContainerStats {
	stats := core.ContainerStats{
		ContainerID: id,
		CPUPercent:  cpuPercent(raw),
		MemoryUsage: memoryUsage(raw.MemoryStats),
		MemoryLimit: raw.MemoryStats.Limit,
		ReadAt:      raw.Read,
	}
	if stats.MemoryLimit > 0 {
		stats.MemoryPercent = float64(stats.MemoryUsage) / float64(stats.MemoryLimit) * 100.0
	}
	for _, nw := range raw.Networks {
		stats.NetworkRx += nw.RxBytes
		stats.NetworkTx += nw.TxBytes
	}
	return stats
}

// cpuPercent computes CPU usage in percent from consecutive engine samples,
// the same way the docker CLI does: container delta over system delta,
// scaled by the number of online CPUs.
func cpuPercent(raw container.StatsResponse) float64 {
	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	if cpuDelta <= 0 || sysDelta <= 0 {
		return 0
	}
	online := float64(raw.CPUStats.OnlineCPUs)
	if online == 0 {
		online = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
	}
	if online == 0 {
		online = 1
	}
	return cpuDelta / sysDelta * online * 100.0
}

// memoryUsage returns usage excluding the page cache. On cgroup v2 the
// engine reports inactive_file, which the docker CLI subtracts; fall back
// to the cgroup v1 total_inactive_file key, then to raw usage.
func memoryUsage(mem container.MemoryStats) uint64 {
	if v, ok := mem.Stats["inactive_file"]; ok && v < mem.Usage {
		return mem.Usage - v
	}
	if v, ok := mem.Stats["total_inactive_file"]; ok && v < mem.Usage {
		return mem.Usage - v
	}
	return mem.Usage
}
