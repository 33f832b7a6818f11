// Package fleurflow orchestrates FLEUR self-consistency calculations.
//
// A SCF workchain submits FLEUR runs through a restarting base workchain until
// the charge density distance, total energy, force or torque criterion is met,
// and reports a structured result with a numeric exit code. Calculations are
// executed by a scheduler worker pool on the local machine or over ssh.
//
// The root package exposes the Service façade wiring all layers:
//
//	srv, _ := fleurflow.New(ctx, fleurflow.WithConfig(config))
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	node, wait, _ := rt.SubmitSCF(ctx, input)
//	out, _ := wait(ctx, 24*time.Hour)
//
// Every workchain and calculation leaves a node in the configured node store.
package fleurflow
