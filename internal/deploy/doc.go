// Package deploy implements the rule deployment engine.
//
// The engine installs a categorized tree of IDE-assistant rule documents into a
// target project and adapts the documents to their new location.
//
// ARCHITECTURE:
//
// Stages run strictly in order, each a total function of the previous stage:
//
//  1. Resolve: pick the first existing rule tree from an ordered candidate list.
//  2. Sync: for each category, create <target>/.cursor/rules/<category> and copy
//     every file the source category directly contains, overwriting.
//  3. Rewrite: strip the reference prefix from every copied document.
//  4. Provision: create the customizable template only if it does not exist.
//  5. Report: count installed files and derive an overall status.
//
// Validation (target exists, source found) happens before any write. Once the
// mutating stages start, failures are collected per file and per category and
// processing continues; nothing is rolled back.
//
// All filesystem access goes through billy.Filesystem so the engine runs
// unchanged against the OS (osfs) and in memory (memfs).
//
// The engine is single-threaded and has no cancellation. Two concurrent
// installs into the same target race per file, last writer wins; only the
// template uses an exclusive create.
package deploy
