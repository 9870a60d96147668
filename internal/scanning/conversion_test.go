package scanning

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DecodeDataURI", func() {
	payload := base64.StdEncoding.EncodeToString([]byte("receipt"))

	It("decodes a data URI and returns its MIME type", func() {
		data, mimeType, err := DecodeDataURI("data:image/jpeg;base64," + payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("receipt")))
		Expect(mimeType).To(Equal("image/jpeg"))
	})

	It("accepts bare base64", func() {
		data, mimeType, err := DecodeDataURI(payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("receipt")))
		Expect(mimeType).To(BeEmpty())
	})

	It("rejects a prefix without a payload separator", func() {
		_, _, err := DecodeDataURI("data:image/png;base64")
		Expect(err).To(HaveOccurred())
	})

	It("rejects empty input", func() {
		_, _, err := DecodeDataURI("data:image/png;base64,")
		Expect(err).To(MatchError(errEmptyImage))
	})

	It("rejects invalid base64", func() {
		_, _, err := DecodeDataURI("!!!")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("prepareImageData", func() {
	It("passes PNG data through", func() {
		pngData := testPNG()
		out, mimeType, converted, err := prepareImageData(pngData, "IMAGE/PNG ")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(pngData))
		Expect(mimeType).To(Equal("image/png"))
		Expect(converted).To(BeFalse())
	})

	It("converts JPEG to PNG", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil)).To(Succeed())

		out, _, converted, err := prepareImageData(buf.Bytes(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(converted).To(BeTrue())
		Expect(out[:4]).To(Equal([]byte("\x89PNG")))
	})

	It("rejects empty data", func() {
		_, _, _, err := prepareImageData(nil, "image/png")
		Expect(err).To(MatchError(errEmptyImage))
	})
})

var _ = Describe("isHEICFormat", func() {
	It("detects the ftyp brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic0000"))).To(BeTrue())
	})

	It("ignores other data", func() {
		Expect(isHEICFormat([]byte("\x89PNG\r\n\x1a\n0000"))).To(BeFalse())
	})
})

var _ = Describe("enhanceForOCR", func() {
	It("upscales short images", func() {
		out, err := enhanceForOCR(testPNG())
		Expect(err).NotTo(HaveOccurred())

		img, _, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dy()).To(Equal(minOCRHeight))
	})
})
