package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"

	"github.com/huangsam/mergecheck/schema"
)

// fingerprintDomain separates snapshot hashes from any other sha256 use.
const fingerprintDomain = "mergecheck/snapshot/v1"

// fingerprintInput lists every snapshot field a check may read.
// Field order is fixed, so the JSON encoding is canonical.
type fingerprintInput struct {
	ProjectID             string                             `json:"project_id"`
	IID                   int                                `json:"iid"`
	HeadSHA               string                             `json:"head_sha"`
	BaseSHA               string                             `json:"base_sha"`
	SourceBranch          string                             `json:"source_branch"`
	TargetBranch          string                             `json:"target_branch"`
	Author                string                             `json:"author"`
	State                 string                             `json:"state"`
	Draft                 bool                               `json:"draft"`
	Approved              bool                               `json:"approved"`
	TemporarilyUnapproved bool                               `json:"temporarily_unapproved"`
	Violations            []schema.ScanResultPolicyViolation `json:"violations"`
	Policies              []schema.SecurityPolicy            `json:"policies"`
}

// Fingerprint hashes the snapshot inputs that checks depend on. Any change to
// them yields a different fingerprint; collection order does not.
func Fingerprint(snap *schema.MergeRequestSnapshot) string {
	mr := snap.MergeRequest
	input := fingerprintInput{
		ProjectID:             mr.Ref.ProjectID,
		IID:                   mr.Ref.IID,
		HeadSHA:               mr.HeadSHA,
		BaseSHA:               mr.BaseSHA,
		SourceBranch:          mr.SourceBranch,
		TargetBranch:          mr.TargetBranch,
		Author:                mr.Author,
		State:                 mr.State,
		Draft:                 mr.Draft,
		Approved:              snap.Approved,
		TemporarilyUnapproved: snap.TemporarilyUnapproved,
		Violations:            slices.Clone(snap.Violations),
		Policies:              slices.Clone(snap.Policies),
	}
	slices.SortFunc(input.Violations, func(a, b schema.ScanResultPolicyViolation) int {
		if c := strings.Compare(a.PolicyRuleID, b.PolicyRuleID); c != 0 {
			return c
		}
		if c := strings.Compare(string(a.State), string(b.State)); c != 0 {
			return c
		}
		if a.Dismissed != b.Dismissed {
			if a.Dismissed {
				return 1
			}
			return -1
		}
		return strings.Compare(a.DismissalReason, b.DismissalReason)
	})
	slices.SortFunc(input.Policies, func(a, b schema.SecurityPolicy) int {
		if c := strings.Compare(a.PolicyID, b.PolicyID); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	// Plain structs of strings and bools always marshal.
	data, _ := json.Marshal(input)
	return hashWithDomain(fingerprintDomain, data)
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
