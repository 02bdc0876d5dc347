package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/chmemsim/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Default", func() {
	It("returns a config that validates cleanly", func() {
		cfg := config.Default()
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.Mode).To(Equal(config.ModeC))
		Expect(cfg.LineSize).To(Equal(64))
	})
})

var _ = Describe("Load and Save", func() {
	It("round-trips a modified config through a file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "cfg.json")

		cfg := config.Default()
		cfg.Mode = config.ModeDEF
		cfg.NumCores = 4
		cfg.SWPCore0Ways = 3

		Expect(cfg.Save(path)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Mode).To(Equal(config.ModeDEF))
		Expect(loaded.NumCores).To(Equal(4))
		Expect(loaded.SWPCore0Ways).To(Equal(3))
	})

	It("keeps defaulted fields for keys absent from the file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "partial.json")
		Expect(os.WriteFile(path, []byte(`{"mode":"A"}`), 0o644)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Mode).To(Equal(config.ModeA))
		Expect(loaded.LineSize).To(Equal(64))
	})

	It("errors on a missing file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "missing.json"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Validate", func() {
	It("rejects an unknown mode", func() {
		cfg := config.Default()
		cfg.Mode = "Z"
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("rejects a non-power-of-two line size", func() {
		cfg := config.Default()
		cfg.LineSize = 48
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("rejects mode DEF with zero cores", func() {
		cfg := config.Default()
		cfg.Mode = config.ModeDEF
		cfg.NumCores = 0
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("rejects a cache geometry that isn't a power-of-two set count", func() {
		cfg := config.Default()
		cfg.DCache.SizeBytes = 100
		cfg.DCache.Associativity = 3
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("rejects an unknown cache policy", func() {
		cfg := config.Default()
		cfg.DCache.Policy = "MRU"
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("rejects an invalid dram_policy outside mode A", func() {
		cfg := config.Default()
		cfg.DRAMPolicy = "RANDOM_PAGE"
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("ignores dram_policy and icache/l2cache geometry in mode A", func() {
		cfg := config.Default()
		cfg.Mode = config.ModeA
		cfg.DRAMPolicy = "GARBAGE"
		cfg.ICache = config.CacheParams{}
		cfg.L2Cache = config.CacheParams{}
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects a negative SWP quota", func() {
		cfg := config.Default()
		cfg.SWPCore0Ways = -1
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("rejects an SWP quota above L2 associativity", func() {
		cfg := config.Default()
		cfg.SWPCore0Ways = cfg.L2Cache.Associativity + 1
		Expect(cfg.Validate()).To(HaveOccurred())
	})
})
