package reason

import "github.com/vthunder/ideonet/internal/network"

// Intent labels, in classification priority order. The first label whose
// category appears among the active prefabs wins; a cycle with no active
// prefabs is unknown.
const (
	LabelVerification = "verification"
	LabelDefinition   = "definition"
	LabelCapability   = "capability"
	LabelGeneral      = "general"
	LabelUnknown      = "unknown"
)

var labelPriority = []string{LabelVerification, LabelDefinition, LabelCapability, LabelGeneral}

// labelPriors are the base rates fused with the top prefab activation to
// produce a confidence. Unknown carries a low prior so that cycles with no
// prefab evidence report low confidence.
var labelPriors = map[string]float64{
	LabelVerification: 0.6,
	LabelDefinition:   0.6,
	LabelCapability:   0.6,
	LabelGeneral:      0.5,
	LabelUnknown:      0.2,
}

// PrefabActivation is one active prefab and its score for the cycle.
type PrefabActivation struct {
	ID         string
	Name       string
	Activation float64
}

// Result is the outcome of one reasoning cycle.
type Result struct {
	Label         string
	Confidence    float64
	TopIdeoms     []network.IdeomActivation
	ActivePrefabs []PrefabActivation
	Explanation   string
	Truncated     bool
}
