// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

var (
	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrEmptyFilename indicates the Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrNegativeSize indicates a negative file size.
	ErrNegativeSize = errors.New("file size cannot be negative")

	// ErrInvalidStatus indicates an unknown JobStatus value.
	ErrInvalidStatus = errors.New("invalid job status")

	// ErrInvalidProgress indicates progress outside [0,100].
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")

	// ErrInvalidFingerprint indicates a FingerprintRecord failed validation.
	ErrInvalidFingerprint = errors.New("invalid fingerprint record")

	// ErrEmptyFingerprint indicates the Fingerprint field is empty.
	ErrEmptyFingerprint = errors.New("fingerprint cannot be empty")

	// ErrEmptySessionID indicates a ConversationContext without a session id.
	ErrEmptySessionID = errors.New("session id cannot be empty")

	// ErrEmptyEntryKind indicates a HistoryEntry without a discriminant.
	ErrEmptyEntryKind = errors.New("history entry kind cannot be empty")

	// ErrInvalidLength indicates an encoded collection length that is negative
	// or larger than the remaining input.
	ErrInvalidLength = errors.New("invalid encoded length")
)
