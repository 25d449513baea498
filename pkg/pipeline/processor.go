// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "log/slog"

// Processor runs a Pipeline to completion against a System, using the
// strictly-phased batched scheduler algorithm: each phase gathers every node
// whose dependencies have all succeeded, hands them to the system as one
// batch, and repeats until no further nodes become processable.
type Processor struct {
	system System
	logger *slog.Logger
}

// NewProcessor creates a Processor that dispatches to the given System.
func NewProcessor(system System, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{system: system, logger: logger}
}

// Process runs the pipeline to completion and returns a total, per-node
// Outcome.
func (p *Processor) Process(pl *Pipeline, args *ArgSet) Outcome {
	state := newProcessingState(pl, args, p.system, p.logger)
	return state.run()
}

type processingState struct {
	nodes  *Pipeline
	args   *ArgSet
	system System
	logger *slog.Logger

	// depIdToDependeeIds maps a NodeId to the NodeIds that depend on it.
	depIdToDependeeIds map[NodeId][]NodeId

	outcome Outcome
	interms *IntermediateSet

	processableIds map[NodeId]struct{}

	// unprocessedIdToDepIds maps a NodeId to the set of dependency NodeIds
	// it is still waiting on. An empty set means the node is ready to run.
	unprocessedIdToDepIds map[NodeId]map[NodeId]struct{}
}

func newProcessingState(pl *Pipeline, args *ArgSet, system System, logger *slog.Logger) *processingState {
	logger.Debug("processing pipeline", "node_count", pl.Len())

	outcome := Outcome{NodeResults: make(map[NodeId]NodeResult, pl.Len())}

	unprocessedIdToDepIds := make(map[NodeId]map[NodeId]struct{}, pl.Len())
	for _, node := range pl.Nodes() {
		deps, err := system.Inputs(node)
		if err != nil {
			outcome.NodeResults[node.Id] = NodeResult{Kind: ResultProcessErrored, Err: err}
			continue
		}
		if len(deps) == 0 {
			// Root nodes are never waited on by anything, so they must not
			// appear in unprocessedIdToDepIds: nothing ever removes them
			// from it (that only happens via the dependee path in
			// markDependentNodesProcessable), and the terminal drain loop
			// would otherwise clobber their real result with Unprocessed.
			continue
		}
		depSet := make(map[NodeId]struct{}, len(deps))
		for _, d := range deps {
			depSet[d] = struct{}{}
		}
		unprocessedIdToDepIds[node.Id] = depSet
	}

	processableIds := make(map[NodeId]struct{})
	depIdToDependeeIds := make(map[NodeId][]NodeId)

	for _, node := range pl.Nodes() {
		if _, errored := outcome.NodeResults[node.Id]; errored {
			continue
		}
		depSet := unprocessedIdToDepIds[node.Id]
		if len(depSet) == 0 {
			processableIds[node.Id] = struct{}{}
			continue
		}
		for depId := range depSet {
			depIdToDependeeIds[depId] = append(depIdToDependeeIds[depId], node.Id)
		}
	}

	return &processingState{
		nodes:                 pl,
		args:                  args,
		system:                system,
		logger:                logger,
		depIdToDependeeIds:    depIdToDependeeIds,
		outcome:               outcome,
		interms:               NewIntermediateSet(),
		processableIds:        processableIds,
		unprocessedIdToDepIds: unprocessedIdToDepIds,
	}
}

func (s *processingState) run() Outcome {
	for len(s.processableIds) > 0 {
		s.logger.Debug("processing phase", "count", len(s.processableIds))

		phaseNodes := s.gatherPhaseNodes()
		if len(phaseNodes) == 0 {
			s.logger.Error("no further processable nodes, but unprocessed work remains",
				"remaining", len(s.unprocessedIdToDepIds))
			break
		}
		recordPhaseRun()

		results := s.system.ProcessMultiple(phaseNodes, s.args, s.interms)

		newlyProcessable := make(map[NodeId]struct{})
		seen := make(map[NodeId]struct{}, len(results))
		for _, result := range results {
			if _, wasRequested := s.processableIds[result.Id]; !wasRequested {
				s.logger.Error("system processed a node it was not asked to process", "node", result.Id)
				s.outcome.NodeResults[result.Id] = NodeResult{Kind: ResultUnexpected}
				continue
			}
			seen[result.Id] = struct{}{}
			delete(s.processableIds, result.Id)
			s.processResult(result, newlyProcessable)
		}

		for id := range s.processableIds {
			s.logger.Error("system did not process a requested node", "node", id)
			s.outcome.NodeResults[id] = NodeResult{Kind: ResultSystemUnprocessed}
		}
		s.processableIds = newlyProcessable
	}

	for unprocessedId, depIds := range s.unprocessedIdToDepIds {
		s.logger.Error("node was not processed", "node", unprocessedId)
		reasons := make(map[NodeId]UnprocessedDependencyReason, len(depIds))
		for depId := range depIds {
			if _, exists := s.nodes.Get(depId); exists {
				reasons[depId] = DependencyUnprocessed
			} else {
				reasons[depId] = DependencyUnknown
			}
		}
		s.outcome.NodeResults[unprocessedId] = NodeResult{
			Kind:                    ResultUnprocessed,
			UnprocessedDependencies: reasons,
		}
	}

	for _, result := range s.outcome.NodeResults {
		recordNodeOutcome(result.Kind)
	}

	return s.outcome
}

func (s *processingState) gatherPhaseNodes() []Node {
	nodes := make([]Node, 0, len(s.processableIds))
	for id := range s.processableIds {
		node, ok := s.nodes.Get(id)
		if !ok {
			s.logger.Error("failed to resolve processable node", "node", id)
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func (s *processingState) processResult(result ProcessResult, newlyProcessable map[NodeId]struct{}) {
	if result.Err != nil {
		s.logger.Error("error processing node", "node", result.Id, "err", result.Err)
		s.outcome.NodeResults[result.Id] = NodeResult{Kind: ResultProcessErrored, Err: result.Err}
		return
	}

	s.logger.Info("node processed successfully", "node", result.Id)
	s.markDependentNodesProcessable(result.Id, newlyProcessable)
	s.outcome.NodeResults[result.Id] = NodeResult{Kind: ResultSuccess}
	s.interms.Set(result.Id, result.Value)
}

func (s *processingState) markDependentNodesProcessable(processedId NodeId, newlyProcessable map[NodeId]struct{}) {
	dependeeIds, ok := s.depIdToDependeeIds[processedId]
	if !ok {
		return
	}

	for _, dependeeId := range dependeeIds {
		depSet, ok := s.unprocessedIdToDepIds[dependeeId]
		if !ok {
			msg := "internal error: unexpected missing dependency set for " + string(dependeeId)
			s.logger.Error(msg)
			s.outcome.NodeResults[dependeeId] = NodeResult{Kind: ResultInternalError, InternalMessage: msg}
			continue
		}
		if _, present := depSet[processedId]; !present {
			msg := "internal error: could not remove " + string(processedId) + " from " + string(dependeeId) + "'s unprocessed dependencies"
			s.logger.Error(msg)
			s.outcome.NodeResults[dependeeId] = NodeResult{Kind: ResultInternalError, InternalMessage: msg}
			continue
		}
		delete(depSet, processedId)
		if len(depSet) == 0 {
			delete(s.unprocessedIdToDepIds, dependeeId)
			s.logger.Debug("node newly processable", "node", dependeeId)
			newlyProcessable[dependeeId] = struct{}{}
		}
	}
}
