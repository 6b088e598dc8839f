/*
 * DNSCheck Copyright 2025 The DNSCheck Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy
 * of the License at http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
 * implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */

package platform

import "context"

// StaticPermission is the CLI's upload-permission check: the operator
// either allowed reporting or explicitly disabled it with a flag. Embedded
// deployments replace this with their real consent surface.
type StaticPermission struct {
	Allowed bool
}

// UploadEnabled reports whether telemetry may be emitted.
func (p *StaticPermission) UploadEnabled(_ context.Context) bool {
	return p.Allowed
}
