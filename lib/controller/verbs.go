// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"fmt"
	"sync/atomic"

	"github.com/bindery-foundation/bindery/lib/binder"
)

// pingCount tallies ping-global calls across every assembled API in
// the process. The shared counter is deliberate: it shows operators
// how much diagnostic traffic the binder as a whole is absorbing.
var pingCount atomic.Int64

// staticVerbs are registered on every assembled API before any section
// loads, so even an empty document yields a probeable API.
var staticVerbs = []struct {
	name      string
	info      string
	assurance binder.AssuranceLevel
	handler   binder.VerbHandler
}{
	{"ping-global", "liveness probe; replies with a process-wide call count", binder.AssuranceNone, handlePing},
	{"auth", "raise the calling session to basic assurance", binder.AssuranceNone, handleAuth},
}

// registerStaticVerbs installs the built-in verbs. A registration
// failure is recorded and the remaining verbs still register; the
// caller folds the failures into the assembly aggregate.
func registerStaticVerbs(api *binder.API) []error {
	var errs []error
	for _, v := range staticVerbs {
		if err := api.AddVerb(v.name, v.info, v.assurance, v.handler); err != nil {
			errs = append(errs, fmt.Errorf("static verb %q: %w", v.name, err))
		}
	}
	return errs
}

func handlePing(req *binder.Request) {
	count := pingCount.Add(1)
	req.API().Logger().Info("ping", "count", count)
	req.Success(map[string]any{"count": count})
}

func handleAuth(req *binder.Request) {
	if err := req.Session().SetLevel(binder.AssuranceBasic); err != nil {
		req.Fail("auth-failed", err.Error())
		return
	}
	req.Success(nil)
}
