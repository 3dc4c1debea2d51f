package http

import (
	"bytes"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"filechain/internal/domain"
	"filechain/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	routeAddBlock  = "add_block"
	routeSignBlock = "sign_block"
)

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Index   *int64 `json:"index,omitempty"`
}

type blockView struct {
	Index        int64   `json:"index"`
	PreviousHash string  `json:"previous_hash"`
	FileHash     string  `json:"file_hash"`
	UserID       string  `json:"user_id"`
	Timestamp    float64 `json:"timestamp"`
	Hash         string  `json:"hash"`
}

func toBlockView(b domain.Block) blockView {
	return blockView{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		FileHash:     b.ContentHash,
		UserID:       b.OwnerID,
		Timestamp:    float64(b.Timestamp),
		Hash:         b.Hash,
	}
}

type addBlockRequest struct {
	FilePath      string `json:"file_path"`
	ContentBase64 string `json:"content_base64"`
	UserID        string `json:"user_id"`
}

type signBlockRequest struct {
	BlockIndex *int64 `json:"block_index"`
	SignerID   string `json:"signer_id"`
	Signature  string `json:"signature"`
	PublicKey  string `json:"public_key"`
}

func (s *Server) handleAddBlock(c *gin.Context) {
	var req addBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	hasPath, hasContent := req.FilePath != "", req.ContentBase64 != ""
	if hasPath == hasContent {
		writeErrorCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "exactly one of file_path or content_base64 is required")
		return
	}

	ctx := c.Request.Context()
	var (
		block domain.Block
		err   error
	)
	if hasPath {
		block, err = s.ledger.AppendFile(ctx, req.FilePath, req.UserID)
	} else {
		content, decodeErr := base64.StdEncoding.DecodeString(req.ContentBase64)
		if decodeErr != nil {
			writeErrorCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "content_base64 is not valid base64")
			return
		}
		block, err = s.ledger.Append(ctx, bytes.NewReader(content), req.UserID)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, envelope{
		Status:  "success",
		Message: "block added",
		Data:    gin.H{"block": toBlockView(block), "chain_valid": s.ledger.IsValid()},
	})
}

func (s *Server) handleChain(c *gin.Context) {
	blocks := s.ledger.Blocks()
	views := make([]blockView, 0, len(blocks))
	for _, b := range blocks {
		views = append(views, toBlockView(b))
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Data: gin.H{"chain": views}})
}

func (s *Server) handleValidateChain(c *gin.Context) {
	if err := s.ledger.Verify(); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Message: "chain is valid", Data: gin.H{"chain_valid": true}})
}

func (s *Server) handleBlock(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	block, err := s.ledger.BlockAt(index)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Data: gin.H{"block": toBlockView(block)}})
}

func (s *Server) handleSignBlock(c *gin.Context) {
	var req signBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	resp, err := s.signUC.Execute(c.Request.Context(), usecase.SignBlockRequest{
		BlockIndex: req.BlockIndex,
		SignerID:   req.SignerID,
		Signature:  req.Signature,
		PublicKey:  req.PublicKey,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	data := gin.H{"signature_saved": true, "attestation_id": resp.Attestation.ID}
	if resp.Policy != nil {
		data["policy_bundle_hash"] = resp.Policy.BundleHash
	}
	c.JSON(http.StatusCreated, envelope{Status: "success", Message: "signature saved", Data: data})
}

func (s *Server) handleCheckSignature(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	status, err := s.signatures.CheckStatus(c.Request.Context(), index, s.ledger, s.verifier)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Status: "success", Data: status})
}

func indexParam(c *gin.Context) (int64, bool) {
	index, err := strconv.ParseInt(strings.TrimSpace(c.Param("index")), 10, 64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "index must be an integer")
		return 0, false
	}
	return index, true
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "INTERNAL", "internal error"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrSignatureInvalid):
		status, code, message = http.StatusBadRequest, "SIGNATURE_INVALID", err.Error()
	case errors.Is(err, domain.ErrCrypto):
		status, code, message = http.StatusBadRequest, "MALFORMED_INPUT", err.Error()
	case errors.Is(err, domain.ErrPolicyDenied):
		status, code, message = http.StatusForbidden, "POLICY_DENIED", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrIntegrity):
		resp := errorResponse{Status: "error", Code: "INTEGRITY_ERROR", Message: err.Error()}
		var ie *usecase.IntegrityError
		if errors.As(err, &ie) {
			resp.Index = &ie.Index
		}
		c.JSON(http.StatusConflict, resp)
		return
	case errors.Is(err, domain.ErrCorruptState):
		code, message = "CORRUPT_STATE", "persisted state is corrupt"
	case errors.Is(err, domain.ErrIO):
		code, message = "IO_ERROR", "storage unavailable"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "code", code, "error", err)
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
