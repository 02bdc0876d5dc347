package recorder_test

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/chmemsim/recorder"
)

func TestRecorder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Recorder Suite")
}

var _ = Describe("Recorder", func() {
	It("creates its database file and accepts entries without error", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "trace.db")

		r, err := recorder.New(path)
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		r.Record(recorder.Entry{Cycle: 1, CoreID: 0, Address: 0x1000, Type: "LOAD", Hit: true, Delay: 1})
		r.Record(recorder.Entry{Cycle: 2, CoreID: 1, Address: 0x2000, Type: "STORE", Hit: false, Delay: 55})

		Expect(r.Flush()).To(Succeed())
	})
})
