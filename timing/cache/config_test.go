package cache_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/timing/cache"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "cache-config-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("should save and load a config", func() {
		path := filepath.Join(tempDir, "cache.json")
		config := cache.Config{NumSets: 64, Associativity: 2, LineSize: 32}

		Expect(config.SaveConfig(path)).To(Succeed())

		loaded, err := cache.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(config))
	})

	It("should keep defaults for missing fields", func() {
		path := filepath.Join(tempDir, "partial.json")
		Expect(os.WriteFile(path, []byte(`{"associativity": 2}`), 0644)).To(Succeed())

		loaded, err := cache.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Associativity).To(Equal(uint32(2)))
		Expect(loaded.NumSets).To(Equal(cache.DefaultL1DConfig().NumSets))
		Expect(loaded.LineSize).To(Equal(cache.DefaultL1DConfig().LineSize))
	})

	It("should reject an invalid geometry in a file", func() {
		path := filepath.Join(tempDir, "bad.json")
		Expect(os.WriteFile(path, []byte(`{"line_size": 48}`), 0644)).To(Succeed())

		_, err := cache.LoadConfig(path)

		var configErr *cache.ConfigError
		Expect(errors.As(err, &configErr)).To(BeTrue())
		Expect(configErr.Field).To(Equal("line_size"))
	})

	It("should fail on a missing file", func() {
		_, err := cache.LoadConfig(filepath.Join(tempDir, "missing.json"))
		Expect(err).To(HaveOccurred())
	})

	It("should fail on malformed JSON", func() {
		path := filepath.Join(tempDir, "broken.json")
		Expect(os.WriteFile(path, []byte(`{`), 0644)).To(Succeed())

		_, err := cache.LoadConfig(path)
		Expect(err).To(MatchError(ContainSubstring("failed to parse")))
	})

	It("should reject a geometry wider than the address", func() {
		config := cache.Config{NumSets: 1 << 27, Associativity: 1, LineSize: 64}
		Expect(config.Validate()).To(HaveOccurred())
	})
})
