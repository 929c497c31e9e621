package repack

import "strings"

// allPVT is the sentinel PVT value meaning a target is not partitioned by
// process/voltage/temperature corner and instead acts as a cross-cutting
// barrier for its kit.
const allPVT = "ALL"

// TargetID returns the primary-key identity string for a (kitName, pvt) pair,
// as used in the dependency graph, persisted state, and executor submissions:
// "<kit_name>::<pvt>" when pvt is non-empty, else "<kit_name>::ALL".
func TargetID(kitName, pvt string) string {
	if pvt == "" {
		pvt = allPVT
	}
	return kitName + "::" + pvt
}

// SplitTargetID reverses TargetID, returning the empty string for pvt when
// the identity encodes the ALL sentinel. It does not validate that id
// actually originated from TargetID; a malformed id without "::" returns id
// unchanged as the kit name with an empty pvt.
func SplitTargetID(id string) (kitName, pvt string) {
	kitName, pvt, ok := strings.Cut(id, "::")
	if !ok {
		return id, ""
	}
	if pvt == allPVT {
		pvt = ""
	}
	return kitName, pvt
}

// MatchPVT reports whether a dependency target and a dependent target are
// connected: an edge between them is only meaningful when their PVTs agree,
// or either side is the ALL barrier.
func MatchPVT(depPVT, targetPVT string) bool {
	return depPVT == targetPVT || depPVT == "" || targetPVT == ""
}
