package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/budget-receipts/internal/extract"
	"github.com/zombor/budget-receipts/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		scanner     *mockScanner
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		service = NewService(db, scanner, storage, Config{Source: "tesseract"})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.Handler().ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		scanner = newMockScanner()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
			ghttpServer = nil
		}
	})

	multipartBody := func(filename, contentType string, content []byte) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		if contentType != "" {
			header["Content-Type"] = []string{contentType}
		}
		part, err := writer.CreatePart(header)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())
		return body, writer.FormDataContentType()
	}

	decodeJSON := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, v)).To(Succeed())
	}

	Describe("handleHealth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
		})

		It("should answer without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})
	})

	Describe("handleScanReceipt", func() {
		When("a multipart upload succeeds", func() {
			It("should return the draft with status Created", func() {
				body, contentType := multipartBody("fis.jpg", "image/jpeg", []byte("fake image data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var scan Scan
				decodeJSON(resp, &scan)
				Expect(scan.ID).NotTo(BeEmpty())
				Expect(scan.Data.Description).To(Equal("Migros"))
				Expect(scan.ContentType).To(Equal("image/jpeg"))
				Expect(db.scans).To(HaveKey(scan.ID))
			})
		})

		When("the upload has no content type", func() {
			It("should infer it from the extension", func() {
				body, contentType := multipartBody("fis.heic", "", []byte("fake image data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", contentType, body)
				Expect(err).NotTo(HaveOccurred())

				var scan Scan
				decodeJSON(resp, &scan)
				Expect(scan.ContentType).To(Equal("image/heic"))
			})
		})

		When("a JSON data URI is posted", func() {
			It("should decode and scan it", func() {
				payload, err := json.Marshal(map[string]string{
					"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png")),
				})
				Expect(err).NotTo(HaveOccurred())

				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", "application/json", bytes.NewReader(payload))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var scan Scan
				decodeJSON(resp, &scan)
				Expect(scan.ContentType).To(Equal("image/png"))
			})
		})

		When("the JSON image is not base64", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", "application/json", strings.NewReader(`{"image": "!!!"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				body := &bytes.Buffer{}
				writer := multipart.NewWriter(body)
				Expect(writer.WriteField("other", "value")).To(Succeed())
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", writer.FormDataContentType(), body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var result map[string]string
				decodeJSON(resp, &result)
				Expect(result["error"]).To(ContainSubstring("No file was selected"))
			})
		})

		When("OCR fails", func() {
			BeforeEach(func() {
				scanner.scanErr = scanning.ErrOCRFailed
			})

			It("should return status Unprocessable Entity with the OCR message", func() {
				body, contentType := multipartBody("fis.jpg", "image/jpeg", []byte("fake image data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				var result map[string]string
				decodeJSON(resp, &result)
				Expect(result["error"]).To(Equal("OCR işlemi başarısız oldu"))
			})
		})

		When("storage fails", func() {
			BeforeEach(func() {
				storage.saveErr = errors.New("disk full")
			})

			It("should return status Internal Server Error", func() {
				body, contentType := multipartBody("fis.jpg", "image/jpeg", []byte("fake image data"))
				resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("handleSaveReceipt", func() {
		BeforeEach(func() {
			db.scans["scan-1"] = &Scan{ID: "scan-1", ReceiptPath: "scan-1_fis.jpg", ContentType: "image/jpeg", Source: "tesseract"}
		})

		post := func(body string) *http.Response {
			resp, err := http.Post(ghttpServer.URL()+"/api/receipts", "application/json", strings.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("the draft is valid", func() {
			It("should create the transaction", func() {
				resp := post(`{"scan_id": "scan-1", "receipt": {"amount": 117.5, "category": "Market", "description": "Migros",
					"currency": "TRY", "date": "2024-08-15", "items": [{"name": "Ekmek", "quantity": 1, "total_price": 5}]}}`)
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var result struct {
					Transaction Transaction    `json:"transaction"`
					Items       []*ReceiptItem `json:"items"`
				}
				decodeJSON(resp, &result)
				Expect(result.Transaction.Amount).To(Equal(int64(11750)))
				Expect(result.Transaction.ReceiptPath).To(Equal("scan-1_fis.jpg"))
				Expect(result.Items).To(HaveLen(1))
				Expect(db.transactions).To(HaveKey(result.Transaction.ID))
			})
		})

		When("the scan does not exist", func() {
			It("should return status Not Found", func() {
				resp := post(`{"scan_id": "missing", "receipt": {"amount": 10}}`)
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})

		When("the amount is missing", func() {
			It("should return status Bad Request", func() {
				resp := post(`{"scan_id": "scan-1", "receipt": {"description": "Migros"}}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request", func() {
				resp := post(`not json`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleExtractText", func() {
		It("should extract fields from plain text", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/extract", "text/plain; charset=utf-8",
				strings.NewReader("MIGROS\nTARİH: 15.08.2024\nTOPLAM TUTAR: 125,50 TL"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var data extract.ReceiptData
			decodeJSON(resp, &data)
			Expect(data.Amount).To(Equal(125.50))
			Expect(data.Category).To(Equal("Market"))
			Expect(data.Currency).To(Equal("TRY"))
			Expect(*data.Date).To(Equal("2024-08-15"))
		})
	})

	Describe("handleListTransactions", func() {
		When("transactions exist", func() {
			BeforeEach(func() {
				db.transactions["id1"] = &Transaction{ID: "id1", Date: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}
				db.transactions["id2"] = &Transaction{ID: "id2", Date: time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)}
			})

			It("should return them newest first", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var transactions []*Transaction
				decodeJSON(resp, &transactions)
				Expect(transactions).To(HaveLen(2))
				Expect(transactions[0].ID).To(Equal("id2"))
			})
		})

		When("no transactions exist", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})

		When("service returns an error", func() {
			BeforeEach(func() {
				db.listErr = errors.New("database error")
			})

			It("should return status Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetTransaction", func() {
		BeforeEach(func() {
			db.transactions["tx-1"] = &Transaction{ID: "tx-1", Description: "Migros"}
			db.items["tx-1"] = []*ReceiptItem{{ID: "item-1", TransactionID: "tx-1", Name: "Ekmek"}}
		})

		When("the transaction exists", func() {
			It("should return it with its items", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions/tx-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result struct {
					Transaction Transaction    `json:"transaction"`
					Items       []*ReceiptItem `json:"items"`
				}
				decodeJSON(resp, &result)
				Expect(result.Transaction.Description).To(Equal("Migros"))
				Expect(result.Items).To(HaveLen(1))
			})
		})

		When("the transaction does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions/nonexistent")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetReceiptFile", func() {
		BeforeEach(func() {
			db.transactions["tx-1"] = &Transaction{ID: "tx-1", ReceiptPath: "tx-1.jpg", ContentType: "image/jpeg"}
			storage.files["tx-1.jpg"] = []byte("image bytes")
		})

		When("the file exists", func() {
			It("should return the file with its content type", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions/tx-1/receipt")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal("image bytes"))
			})
		})

		When("the file is missing from storage", func() {
			BeforeEach(func() {
				delete(storage.files, "tx-1.jpg")
			})

			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions/tx-1/receipt")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleDeleteTransaction", func() {
		BeforeEach(func() {
			db.transactions["tx-1"] = &Transaction{ID: "tx-1", ReceiptPath: "tx-1.jpg"}
			storage.files["tx-1.jpg"] = []byte("image bytes")
		})

		deleteRequest := func(id string) *http.Response {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/transactions/"+id, nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("deletion succeeds", func() {
			It("should return status No Content and remove the data", func() {
				resp := deleteRequest("tx-1")
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
				Expect(db.transactions).To(BeEmpty())
				Expect(storage.files).To(BeEmpty())
			})
		})

		When("the transaction does not exist", func() {
			It("should return status Not Found", func() {
				resp := deleteRequest("nonexistent")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.deleteErr = errors.New("database error")
			})

			It("should return status Internal Server Error", func() {
				resp := deleteRequest("tx-1")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/transactions", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("authenticate", func() {
		newRequest := func() *http.Request {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/transactions", nil)
			Expect(err).NotTo(HaveOccurred())
			return req
		}

		When("no auth is configured", func() {
			It("should return true", func() {
				Expect(server.authenticate(newRequest())).To(BeTrue())
			})
		})

		When("auth is configured", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
			})

			It("should accept valid credentials", func() {
				req := newRequest()
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")))
				Expect(server.authenticate(req)).To(BeTrue())
			})

			It("should reject invalid credentials", func() {
				req := newRequest()
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:wrong")))
				Expect(server.authenticate(req)).To(BeFalse())
			})

			It("should reject a missing header", func() {
				Expect(server.authenticate(newRequest())).To(BeFalse())
			})
		})
	})

	Describe("requireAuth", func() {
		When("request is unauthorized", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
			})

			It("should return status Unauthorized with a challenge", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).NotTo(BeEmpty())
			})
		})
	})
})
