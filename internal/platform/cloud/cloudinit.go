package cloud

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const cloudConfigHeader = "#cloud-config\n"

type cloudConfig struct {
	WriteFiles []writeFile `yaml:"write_files,omitempty"`
	RunCmd     [][]string  `yaml:"runcmd,omitempty"`
}

type writeFile struct {
	Path        string `yaml:"path"`
	Content     string `yaml:"content"`
	Encoding    string `yaml:"encoding"`
	Owner       string `yaml:"owner"`
	Permissions string `yaml:"permissions"`
}

// CloudInit renders personality files as a cloud-config document with
// write_files entries, followed by runcmd. It returns "" when there is nothing to do.
func CloudInit(files []PersonalityFile, runcmd ...[]string) (string, error) {
	cc := cloudConfig{RunCmd: runcmd}
	for _, f := range files {
		cc.WriteFiles = append(cc.WriteFiles, writeFile{
			Path:        f.Path,
			Content:     f.Contents,
			Encoding:    "b64",
			Owner:       f.Owner + ":" + f.Group,
			Permissions: fileMode(f),
		})
	}
	if len(cc.WriteFiles) == 0 && len(cc.RunCmd) == 0 {
		return "", nil
	}

	out, err := yaml.Marshal(cc)
	if err != nil {
		return "", fmt.Errorf("failed to render cloud-init: %w", err)
	}
	return cloudConfigHeader + string(out), nil
}

// OwnershipCommands returns chown and chmod commands applying each file's owner and mode.
// Providers whose file injection ignores ownership run these at first boot.
func OwnershipCommands(files []PersonalityFile) [][]string {
	var cmds [][]string
	for _, f := range files {
		cmds = append(cmds,
			[]string{"chown", f.Owner + ":" + f.Group, f.Path},
			[]string{"chmod", fileMode(f), f.Path},
		)
	}
	return cmds
}

func fileMode(f PersonalityFile) string {
	return fmt.Sprintf("%#o", f.Mode.Perm())
}
