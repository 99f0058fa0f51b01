package drawer

import (
	"github.com/askiada/go-gatepipe/pkg/pipeline/measure"
	"github.com/askiada/go-gatepipe/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline run.
type Drawer interface {
	// AddStep adds a vertex to the graph. Adding an existing vertex is a no-op.
	AddStep(name string) error
	// AddLink adds a link between parent and child, labelled when label is not empty.
	AddLink(parentName, childName, label string) error
	// SetStatus colours the vertex according to status.
	SetStatus(name string, status model.Status) error
	// SetLabel sets the extra label displayed under the vertex name.
	SetLabel(name, label string) error
	// AddMeasure colours the links by the duration of the instance they lead to.
	AddMeasure(measure measure.Measure) error
	// Draw writes the graph.
	Draw() error
}
