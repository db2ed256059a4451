// Package sweep expands a training sweep into resolved run points.
//
// A sweep enumerates datasets, then shots, then seeds, and below each
// (dataset, shot, seed) coordinate one of three variants:
//
//   - PlainSweep: a single nolora run
//   - FreezeSweep: one run per (freeze_modules, freeze_at) pair
//   - LoraSweep: one run per LoRA rank, optionally chained onto the best
//     checkpoint of the coordinate's nolora run (over-LoRA)
//
// Every point derives its run config from the shared base config with
// runconfig.Config.With; the base is never modified, so points can be
// expanded, inspected and submitted in any interleaving.
//
// Output directories are a function of the point's coordinates:
//
//	{root}/{dataset}/{shot}/{nolora|lora|overlora}/{seed}[/{rank}]
//	{root}/{dataset}/{shot}/seed_{seed}/{freeze suffix}
package sweep
