package cmdutils

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func ViperMustBindPFlag(key string, flag *pflag.Flag) {
	err := viper.BindPFlag(key, flag)
	if err != nil {
		panic(err)
	}
}

// AddFlags executes the specified Add*Flag functions and returns a
// function which binds all those flags to viper
func AddFlags(cmd *cobra.Command, funcs ...func(cmd *cobra.Command) func()) (bindFlags func()) { // nolint:nonamedreturns
	var bindFlagFuncs []func()
	for _, f := range funcs {
		bindFlagFunc := f(cmd)
		bindFlagFuncs = append(bindFlagFuncs, bindFlagFunc)
	}
	return func() {
		for _, f := range bindFlagFuncs {
			f()
		}
	}
}

func AddTestDescriptorFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringArrayP("test", "t", nil,
		"Path to a test description `file`. If not specified, the 'RgdDriverSanity.json'\n"+
			"from the input_description_files folder will be used.\n"+
			"This flag can be used multiple times.")
	return func() {
		ViperMustBindPFlag("test", cmd.Flags().Lookup("test"))
	}
}

func AddCrashGeneratorFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("crash-generator", "",
		"Path to the RDP RGD Integration Test CLI.\n"+
			"By default, the executable is located inside the kit folder.")
	return func() {
		ViperMustBindPFlag("crash-generator", cmd.Flags().Lookup("crash-generator"))
	}
}

func AddRGDTestFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("rgd-test", "",
		"Path to the RGD Test CLI.\n"+
			"By default, the executable is located inside the kit folder.")
	return func() {
		ViperMustBindPFlag("rgd-test", cmd.Flags().Lookup("rgd-test"))
	}
}

func AddRGDCLIFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("rgd-cli", "",
		"Path to the RGD CLI.\n"+
			"By default, the executable is located inside the kit folder.")
	return func() {
		ViperMustBindPFlag("rgd-cli", cmd.Flags().Lookup("rgd-cli"))
	}
}

func AddRetainFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("retain", true,
		"If set to 'false', when all tests pass, artifacts created for each test run\n"+
			"are deleted after successful logging of the results.\n"+
			"By default, test artifacts created for all the test runs are retained.")
	return func() {
		ViperMustBindPFlag("retain", cmd.Flags().Lookup("retain"))
	}
}

func AddAPIFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringArray("api", nil,
		"Graphics `API` to run the tests for. Currently only DX12 is supported.\n"+
			"This flag can be used multiple times.")
	return func() {
		ViperMustBindPFlag("api", cmd.Flags().Lookup("api"))
	}
}

func AddVerboseFlag(cmd *cobra.Command) func() {
	cmd.Flags().BoolP("verbose", "v", false,
		"If specified, console output will include more verbose level information for the tests.")
	return func() {
		ViperMustBindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	}
}

func AddModernOutputFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("modern-output", false,
		"If specified, modernized logging format will be used instead of legacy output\n"+
			"format for both file and console outputs.")
	return func() {
		ViperMustBindPFlag("modern-output", cmd.Flags().Lookup("modern-output"))
	}
}

func AddNotifyFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("notify", false,
		"If specified, a desktop notification is shown when the test run finishes.")
	return func() {
		ViperMustBindPFlag("notify", cmd.Flags().Lookup("notify"))
	}
}

func AddKitDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("kit-dir", "",
		"Path to the RGD test kit folder that holds the kit executables and the\n"+
			"input_description_files folder.\n"+
			"Defaults to the folder containing this executable.")
	return func() {
		ViperMustBindPFlag("kit-dir", cmd.Flags().Lookup("kit-dir"))
	}
}

func AddJSONFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("json", false, "Print output as JSON")
	return func() {
		ViperMustBindPFlag("json", cmd.Flags().Lookup("json"))
	}
}

func AddOutputDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("output-dir", "",
		"Run output `dir` to inspect. Defaults to the newest Output-<timestamp>\n"+
			"folder inside the kit folder.")
	return func() {
		ViperMustBindPFlag("output-dir", cmd.Flags().Lookup("output-dir"))
	}
}

func AddOpenFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("open", false,
		"Open the extended failure log of the case in the default application.")
	return func() {
		ViperMustBindPFlag("open", cmd.Flags().Lookup("open"))
	}
}

func AddForceFlag(cmd *cobra.Command) func() {
	cmd.Flags().BoolP("force", "f", false,
		"Remove the selected run output directories without asking for confirmation.")
	return func() {
		ViperMustBindPFlag("force", cmd.Flags().Lookup("force"))
	}
}

func AddKeepLatestFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("keep-latest", false,
		"Never remove the newest run output directory.")
	return func() {
		ViperMustBindPFlag("keep-latest", cmd.Flags().Lookup("keep-latest"))
	}
}
