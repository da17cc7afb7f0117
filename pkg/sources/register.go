package sources

import (
	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/graph"
)

// Deps bundles every external collaborator the knowledge sources need.
// AI and FactCheck are required for network and case_synthesizer to do
// anything useful; the Forensics fields are optional (nil disables that
// detail without disabling the source).
type Deps struct {
	AI        AI
	FactCheck FactCheck
	Forensics ForensicsDeps
}

// Register wires all seven knowledge sources into c, using the concrete
// per-source cooldowns from original_source/app/pipelines/orchestrator.py's
// register_knowledge_sources as grounded defaults (spec.md only specifies a
// global default cooldown).
func Register(c *controller.Controller, store *graph.Store, deps Deps) {
	c.Register(Clustering(store))
	c.Register(Forensics(store, deps.Forensics))
	c.Register(Network(store, deps.AI, deps.FactCheck))
	c.Register(ForensicsXref(store, deps.Forensics.VideoSearch))
	c.Register(Classifier(store))
	c.Register(ReclusterDebunk(store))
	c.Register(CaseSynthesizer(store, deps.AI))
}
