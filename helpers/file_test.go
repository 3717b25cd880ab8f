package helpers_test

import (
	"os"
	"path/filepath"

	"github.com/funnelmon/funnelmon/helpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type testConf struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

var _ = Describe("LoadYamlFile", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	writeFile := func(content string) string {
		path := filepath.Join(dir, "conf.yml")
		Expect(os.WriteFile(path, []byte(content), 0600)).To(Succeed())
		return path
	}

	It("is a no-op for an empty path", func() {
		var conf testConf
		Expect(helpers.LoadYamlFile("", &conf)).To(Succeed())
		Expect(conf).To(Equal(testConf{}))
	})

	It("decodes known fields", func() {
		path := writeFile("name: funnelmon\ncount: 3\n")
		var conf testConf
		Expect(helpers.LoadYamlFile(path, &conf)).To(Succeed())
		Expect(conf.Name).To(Equal("funnelmon"))
		Expect(conf.Count).To(Equal(3))
	})

	It("rejects unknown fields", func() {
		path := writeFile("name: funnelmon\nsurprise: true\n")
		var conf testConf
		Expect(helpers.LoadYamlFile(path, &conf)).To(MatchError(helpers.ErrReadYaml))
	})

	It("reports unreadable files", func() {
		var conf testConf
		Expect(helpers.LoadYamlFile(filepath.Join(dir, "missing.yml"), &conf)).To(MatchError(helpers.ErrReadYaml))
	})
})
