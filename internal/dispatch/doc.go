// Package dispatch decides where validated review output goes and publishes
// it through a Host.
//
// BuildPlan resolves every proposed comment against its file's patch using
// the diffpos index. Publish sends anchorable comments as one batched inline
// review and falls back to a single summary comment listing every proposal
// when nothing anchors or the host rejects the batch. CommitFiles writes
// generated tests and docs to the pull request branch as one commit and
// advances the branch without forcing.
package dispatch
