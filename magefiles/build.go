//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the GLSL shaders to SPIR-V next to their sources.
func (Build) Shaders() error {
	shaders := []string{
		"assets/shaders/shader.vert",
		"assets/shaders/shader.frag",
	}
	for _, src := range shaders {
		if _, err := executeCmd("glslc",
			withArgs("--target-env=vulkan1.2", src, "-o", src+".spv"),
			withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the lumen binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "lumen", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the test suite.
func Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go vet over the module.
func Vet() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
