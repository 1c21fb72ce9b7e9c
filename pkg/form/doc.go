// Package form implements the form controller: it owns the value tree of a
// single form, tracks dirty/touched/submit status, runs validation according to
// the configured mode, and notifies observers after every transition.
//
// A Controller is safe for concurrent use. Mutations are serialized behind a
// mutex; observers run after the lock is released on the goroutine that caused
// the transition. Asynchronous rules run in the background and every result is
// tagged with a per-field generation so a slow, outdated answer can never
// overwrite the outcome of a newer edit.
//
// Typical wiring:
//
//	ctrl := form.New(form.WithMode(form.ModeOnChange), form.WithDefaults(loadDefaults))
//	if err := ctrl.Bind(definition, registry); err != nil { ... }
//	if err := ctrl.Init(ctx); err != nil { ... }
//	_ = ctrl.Change(ctx, "username", "Robin")
//	_ = ctrl.HandleSubmit(ctx, onValid, onInvalid)
package form
