package runner

import (
	"github.com/projectdiscovery/gologger"

	"github.com/dualpath/dualping/pkg/version"
)

var banner = `
     __            __      _
 ___/ /_ _____ ___/ /__   (_)__  ___ _
/ _  / // / _ '/ _  / _ \/ / _ \/ _ '/
\_,_/\_,_/\_,_/\_,_/ .__/_/_//_/\_, /
                  /_/          /___/  ` + version.GetVersion()

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s\n\n", banner)
}
