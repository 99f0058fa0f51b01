package measure

import (
	"strings"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Flow is a run instance on the slowest path of a run.
type Flow struct {
	Instance string
	Total    time.Duration
	// OverAverage is how much longer the instance took than the average instance of its stage.
	OverAverage time.Duration
}

// SlowestPath returns the instances that made the run last as long as it did: the slowest
// primary instance then, when the fallback ran, the slowest fallback instance.
// Metrics must be named after model.InstanceInfo.Vertex.
func SlowestPath(msr Measure) ([]Flow, error) {
	metrics := msr.AllMetrics()
	if len(metrics) == 0 {
		return nil, nil
	}

	var maxTotal time.Duration
	sums := map[string]time.Duration{}
	counts := map[string]int{}
	for name, mt := range metrics {
		stage, _, _ := strings.Cut(name, "/")
		total := mt.GetTotalDuration()
		sums[stage] += total
		counts[stage]++
		if total > maxTotal {
			maxTotal = total
		}
	}

	// edge weights are the time an instance did not use, so the shortest path is the slowest one
	gra := graph.New(graph.StringHash, graph.Directed(), graph.Weighted())
	for _, name := range []string{model.TriggerVertex, model.GateVertex, model.EndVertex} {
		err := gra.AddVertex(name)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add %s vertex", name)
		}
	}
	for _, link := range [][2]string{{model.TriggerVertex, model.GateVertex}, {model.GateVertex, model.EndVertex}} {
		err := gra.AddEdge(link[0], link[1], graph.EdgeWeight(int(maxTotal)))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to link %s to %s", link[0], link[1])
		}
	}

	for name, mt := range metrics {
		stage, _, _ := strings.Cut(name, "/")
		from, to := model.TriggerVertex, model.GateVertex
		if stage == string(model.StageFallback) {
			from, to = model.GateVertex, model.EndVertex
		}

		err := gra.AddVertex(name)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add %s vertex", name)
		}
		err = gra.AddEdge(from, name, graph.EdgeWeight(int(maxTotal-mt.GetTotalDuration())))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to link %s", name)
		}
		err = gra.AddEdge(name, to, graph.EdgeWeight(0))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to link %s", name)
		}
	}

	path, err := graph.ShortestPath(gra, model.TriggerVertex, model.EndVertex)
	if err != nil {
		return nil, errors.Wrap(err, "unable to find slowest path")
	}

	flows := make([]Flow, 0, 2)
	for _, name := range path {
		mt, ok := metrics[name]
		if !ok {
			continue
		}
		stage, _, _ := strings.Cut(name, "/")
		avg := sums[stage] / time.Duration(counts[stage])
		flows = append(flows, Flow{
			Instance:    name,
			Total:       mt.GetTotalDuration(),
			OverAverage: mt.GetTotalDuration() - avg,
		})
	}

	return flows, nil
}
