package reason

import (
	"context"
	"log"

	"github.com/vthunder/ideonet/internal/network"
)

// KnowledgeInterface is the contract for the external knowledge
// collaborator. Calls are synchronous and must be bounded by the passed
// context; a slow or failing collaborator degrades a cycle to core-only
// reasoning instead of failing it.
type KnowledgeInterface interface {
	// GetConnections returns related concept IDs with confidence weights
	// for the given ideom.
	GetConnections(ctx context.Context, ideomID string) (map[string]float64, error)

	// LearnFromIdeomActivations pushes a finished cycle's activation
	// pattern back to the knowledge side.
	LearnFromIdeomActivations(ctx context.Context, pattern *network.ActivationPattern) error
}

// SyncIntoNetwork merges knowledge-side relations for a concept into the
// network. Missing endpoints are created as ideoms in the "knowledge"
// category and edges accumulate under the usual clamping rules. Returns
// the number of edges merged.
func (o *Orchestrator) SyncIntoNetwork(conceptID string, relations map[string]float64) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.syncIntoNetwork(conceptID, relations)
}

func (o *Orchestrator) syncIntoNetwork(conceptID string, relations map[string]float64) int {
	if len(relations) == 0 {
		return 0
	}
	o.net.Upsert(conceptID, conceptID, "knowledge")
	merged := 0
	for target, confidence := range relations {
		if confidence <= 0 {
			continue
		}
		o.net.Upsert(target, target, "knowledge")
		if err := o.net.Connect(conceptID, target, confidence, true); err != nil {
			log.Printf("[reason] knowledge sync %s->%s failed: %v", conceptID, target, err)
			continue
		}
		merged++
	}
	return merged
}

// fuseConfidence combines a label prior with the observed likelihood (the
// top prefab activation) Bayes-style. A vanishing denominator, p=0 with
// l=0 or p=1 with l=1, yields no evidence either way and returns the
// prior unchanged.
func fuseConfidence(prior, likelihood float64) float64 {
	num := prior * likelihood
	den := num + (1-prior)*(1-likelihood)
	if den < 1e-9 {
		return prior
	}
	return num / den
}
