package main

import (
	omd "github.com/0xa1bed0/omd/internal/apps/omd/cmds"
	"github.com/0xa1bed0/omd/internal/runtime"
)

func main() {
	var execErr error

	rt := runtime.NewHostRuntime()
	defer rt.Finalize("omd", "Type 'omd help' to get help.", &execErr)

	execErr = omd.Execute(rt)
}
