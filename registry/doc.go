// Package registry reads and writes a Bazel module registry on the local
// file system.
//
// It implements the file formats used by the Bazel Central Registry (BCR):
// module metadata, source specifications and the registry configuration,
// together with the rules the BCR enforces on them.
//
// # Registry Structure
//
//	registry/
//	├── bazel_registry.json       # Registry configuration
//	└── modules/
//	    └── {name}/
//	        ├── metadata.json     # Module metadata (versions, maintainers)
//	        └── {version}/
//	            ├── MODULE.bazel  # Module file
//	            ├── source.json   # Source archive and patches
//	            ├── presubmit.yml # CI configuration
//	            └── patches/      # Patch files referenced by source.json
//
// # Usage
//
// Add a module version to a registry checkout:
//
//	client := registry.NewClient("/path/to/bazel-central-registry")
//	err := client.InitModule(ctx, "foo", maintainers, "https://foo.dev", "github:acme/foo")
//	if err != nil {
//	    // Handle I/O errors
//	}
//	err = client.Add(ctx, module, true)
//
// Validate raw JSON against the BCR schemas:
//
//	validator := registry.NewValidator()
//	err := validator.ValidateMetadata(jsonData)
package registry
